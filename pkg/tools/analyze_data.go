package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mcp-insight-service/pkg/datauri"
	"mcp-insight-service/pkg/errors"
	"mcp-insight-service/pkg/llm"
	"mcp-insight-service/pkg/logging"
	"mcp-insight-service/pkg/markdown"
	"mcp-insight-service/pkg/prompts"
	"mcp-insight-service/pkg/report"
	"mcp-insight-service/pkg/stats"
	"mcp-insight-service/pkg/tabular"
)

// MaxSampleRows is how many rows are shown in the report and sent with the
// insights prompt
const MaxSampleRows = 5

// AnalyzeDataTool computes statistics for an uploaded table and renders
// charts and an HTML report
type AnalyzeDataTool struct {
	generator llm.Generator
	prompts   llm.Renderer
	markdown  *markdown.Renderer
	output    *OutputWriter
	schema    *ArgumentSchema
	logger    *logging.StructuredLogger
}

// NewAnalyzeDataTool creates the analyze-data tool
func NewAnalyzeDataTool(generator llm.Generator, renderer llm.Renderer, md *markdown.Renderer, output *OutputWriter, logger *logging.StructuredLogger) (*AnalyzeDataTool, error) {
	schema, err := ReflectSchema(ToolAnalyzeData, &AnalyzeDataArgs{})
	if err != nil {
		return nil, err
	}
	return &AnalyzeDataTool{
		generator: generator,
		prompts:   renderer,
		markdown:  md,
		output:    output,
		schema:    schema,
		logger:    logger,
	}, nil
}

// Name returns the tool name
func (t *AnalyzeDataTool) Name() string { return ToolAnalyzeData }

// Description returns the tool description
func (t *AnalyzeDataTool) Description() string {
	return "Analyze a CSV or Excel file: summary statistics, a histogram per numeric column and an HTML report; detailed analysis adds model-written insights"
}

// Schema returns the input schema
func (t *AnalyzeDataTool) Schema() *ArgumentSchema { return t.schema }

// Parse validates the raw arguments
func (t *AnalyzeDataTool) Parse(arguments map[string]interface{}) (interface{}, []errors.FieldViolation) {
	return ParseAnalyzeData(arguments)
}

// Execute loads the table, summarises it and writes the charts and report.
// Insights are generated before anything is written so a generation failure
// leaves no partial output.
func (t *AnalyzeDataTool) Execute(ctx context.Context, raw interface{}) (string, error) {
	args := raw.(AnalyzeDataArgs)

	_, buf, err := datauri.Decode(args.FileData)
	if err != nil {
		return "", errors.NewParsingError(errors.ErrCodeInvalidBase64, "fileData is not valid base64", err).
			WithContext("field", "fileData")
	}

	rows, err := tabular.Load(buf, args.FileName)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", errors.NewParsingError(errors.ErrCodeEmptyTable, "table has no data rows", nil).
			WithContext("file_name", args.FileName)
	}

	st := stats.Summarize(rows)
	sample := rows
	if len(sample) > MaxSampleRows {
		sample = sample[:MaxSampleRows]
	}

	var insights, insightsHTML string
	if args.AnalysisType == AnalysisDetailed {
		insights, err = t.insights(ctx, args.FileName, st, sample)
		if err != nil {
			return "", err
		}
		insightsHTML, err = t.markdown.Render(insights)
		if err != nil {
			return "", errors.NewSystemError(errors.ErrCodeToolExecutionFailed, "failed to render insights", err)
		}
	}

	stamp := t.output.Stamp()
	charts := make([]report.ChartRef, 0, len(st.NumericColumns))
	chartPaths := make([]string, 0, len(st.NumericColumns))
	// distinct columns can sanitise to the same label
	chartNames := make(map[string]bool, len(st.NumericColumns))
	for _, column := range st.NumericColumns {
		var chart bytes.Buffer
		hist := stats.NewHistogram(stats.ColumnValues(rows, column))
		if err := report.RenderHistogram(&chart, column, hist); err != nil {
			return "", errors.NewSystemError(errors.ErrCodeToolExecutionFailed, "failed to render chart", err).
				WithContext("column", column)
		}

		path, err := t.output.Write(args.OutputDir, UniqueArtifactName("chart", column, stamp, ".html", chartNames), chart.Bytes())
		if err != nil {
			return "", err
		}
		charts = append(charts, report.ChartRef{Column: column, Path: filepath.Base(path)})
		chartPaths = append(chartPaths, path)
	}

	var page bytes.Buffer
	err = report.RenderHTML(&page, report.Data{
		FileName:     args.FileName,
		AnalysisType: string(args.AnalysisType),
		GeneratedAt:  time.UnixMilli(stamp).UTC(),
		Stats:        st,
		Charts:       charts,
		SampleRows:   sample,
		InsightsHTML: insightsHTML,
	})
	if err != nil {
		return "", errors.NewSystemError(errors.ErrCodeToolExecutionFailed, "failed to render report", err)
	}

	reportPath, err := t.output.Write(args.OutputDir, ArtifactName("report", "", stamp, ".html"), page.Bytes())
	if err != nil {
		return "", err
	}

	t.logger.WithContext("file_name", args.FileName).
		WithContext("rows", st.RowCount).
		WithContext("numeric_columns", len(st.NumericColumns)).
		WithContext("report", reportPath).
		Info("Analysis complete")

	var sb strings.Builder
	sb.WriteString(report.TextSummary(args.FileName, st))
	if len(chartPaths) > 0 {
		sb.WriteString("\nCharts:\n")
		for _, p := range chartPaths {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	fmt.Fprintf(&sb, "\nReport: %s\n", reportPath)
	if insights != "" {
		fmt.Fprintf(&sb, "\nInsights:\n%s\n", insights)
	}
	return sb.String(), nil
}

func (t *AnalyzeDataTool) insights(ctx context.Context, fileName string, st stats.Statistics, sample []tabular.Row) (string, error) {
	statsJSON, err := report.StatisticsJSON(st)
	if err != nil {
		return "", errors.NewSystemError(errors.ErrCodeToolExecutionFailed, "failed to encode statistics", err)
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", errors.NewSystemError(errors.ErrCodeToolExecutionFailed, "failed to encode sample rows", err)
	}

	prompt, err := t.prompts.Render(prompts.TemplateDataInsights, map[string]interface{}{
		"fileName":   fileName,
		"statistics": statsJSON,
		"sampleRows": string(sampleJSON),
	})
	if err != nil {
		return "", err
	}

	text, err := t.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
