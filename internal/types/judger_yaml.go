package types

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v2"

	"github.com/codearena/judge-api/internal/validator"
)

// Canned judging outcome, used to replay a judger run from a file
type JudgerResultYAML struct {
	Status      ResultStatus       `yaml:"status"       validate:"required,oneof=OK CE IE"`
	Log         string             `yaml:"log"`
	TestResults []JudgerTestResult `yaml:"test_results" validate:"dive"`
}

func ParseJudgerResultYAML(
	ctx context.Context,
	path string,
) (*JudgerResultYAML, error) {
	_, span := tracer.Start(ctx, "ParseJudgerResultYAML", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	content, err := os.ReadFile(path)
	if err != nil {
		span.SetStatus(codes.Error, "error reading file")
		span.RecordError(err)
		return nil, err
	}

	data := JudgerResultYAML{
		Status: ResultStatusOK,
	}
	err = yaml.Unmarshal(content, &data)
	if err != nil {
		span.SetStatus(codes.Error, "error unmarshalling judger result yaml")
		span.RecordError(err)
		return nil, err
	}

	span.AddEvent("validating parsed judger result YAML")
	v := validator.Create()
	err = v.Validate(data)
	if err != nil {
		span.SetStatus(codes.Error, "error validating judger result yaml")
		span.RecordError(err)
		return nil, err
	}

	for _, tr := range data.TestResults {
		if _, err = tr.Status.SubmissionStatus(); err != nil {
			span.SetStatus(codes.Error, "unknown test case status")
			span.RecordError(err)
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("test_results", len(data.TestResults)))
	span.SetStatus(codes.Ok, "")
	span.RecordError(nil)
	return &data, nil
}
