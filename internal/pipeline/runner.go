package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/30Piraten/fmtcf/internal/batch"
	"github.com/30Piraten/fmtcf/internal/resolver"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// maxFailureMessage is the longest message CodePipeline accepts.
const maxFailureMessage = 5000

// S3API is the slice of the S3 client used to move artifacts.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// CodePipelineAPI is the slice of the CodePipeline client used to report results.
type CodePipelineAPI interface {
	PutJobSuccessResult(ctx context.Context, params *codepipeline.PutJobSuccessResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobSuccessResultOutput, error)
	PutJobFailureResult(ctx context.Context, params *codepipeline.PutJobFailureResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobFailureResultOutput, error)
}

// Runner handles CodePipeline jobs.
type Runner struct {
	s3       S3API
	pipeline CodePipelineAPI
	resolver *resolver.Resolver
	opts     batch.Options
	logger   *zap.Logger
}

// NewRunner builds a Runner. opts.Mode, Root and OutDir are set per job.
func NewRunner(s3Client S3API, pipelineClient CodePipelineAPI, r *resolver.Resolver, opts batch.Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		s3:       s3Client,
		pipeline: pipelineClient,
		resolver: r,
		opts:     opts,
		logger:   logger,
	}
}

// Handle processes one job. Job failures are reported to CodePipeline and
// Handle returns nil so Lambda does not retry; only a failure to report is
// returned.
func (r *Runner) Handle(ctx context.Context, event CodePipelineEvent) error {
	// We extract the CodePipeline job ID from the event
	jobID := event.CodePipelineJob.ID
	if jobID == "" {
		return fmt.Errorf("job ID not found in event")
	}
	logger := r.logger.With(zap.String("job_id", jobID))

	if err := r.run(ctx, logger, event.CodePipelineJob.Data); err != nil {
		logger.Error("job failed", zap.Error(err))
		return r.reportFailure(ctx, logger, jobID, err.Error())
	}
	return r.reportSuccess(ctx, logger, jobID)
}

func (r *Runner) run(ctx context.Context, logger *zap.Logger, data JobData) error {
	if len(data.InputArtifacts) == 0 {
		return fmt.Errorf("no input artifacts in job")
	}
	input := data.InputArtifacts[0].Location.S3Location
	logger.Info("using input artifact",
		zap.String("bucket", input.BucketName),
		zap.String("key", input.ObjectKey))

	dir, err := os.MkdirTemp("", "fmtcf-job-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	archive, err := r.download(ctx, input)
	if err != nil {
		return err
	}
	if err := extractZip(archive, dir); err != nil {
		return err
	}

	files, err := batch.Discover(dir, resolver.Tagged, nil)
	if err != nil {
		return err
	}
	opts := r.opts
	opts.Mode = resolver.Tagged
	opts.Root = dir
	opts.OutDir = ""
	report, err := batch.New(r.resolver, opts, logger).Run(ctx, files)
	if err != nil {
		return fmt.Errorf("resolve templates: %w", err)
	}
	logger.Info("resolved templates", zap.Int("files", len(report.Processed)))

	if len(data.OutputArtifacts) == 0 {
		logger.Warn("no output artifact configured, resolved files are discarded")
		return nil
	}
	packed, err := zipDir(dir, isTemplate)
	if err != nil {
		return err
	}
	return r.upload(ctx, data.OutputArtifacts[0].Location.S3Location, packed)
}

func (r *Runner) download(ctx context.Context, loc S3Location) ([]byte, error) {
	out, err := r.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.BucketName),
		Key:    aws.String(loc.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact s3://%s/%s: %w", loc.BucketName, loc.ObjectKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

func (r *Runner) upload(ctx context.Context, loc S3Location, data []byte) error {
	_, err := r.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.BucketName),
		Key:         aws.String(loc.ObjectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact s3://%s/%s: %w", loc.BucketName, loc.ObjectKey, err)
	}
	return nil
}

// We notify CodePipeline of success
func (r *Runner) reportSuccess(ctx context.Context, logger *zap.Logger, jobID string) error {
	_, err := r.pipeline.PutJobSuccessResult(ctx, &codepipeline.PutJobSuccessResultInput{
		JobId: aws.String(jobID),
	})
	if err != nil {
		return fmt.Errorf("failed to report success to CodePipeline: %w", err)
	}
	logger.Info("reported job success")
	return nil
}

// As well as notify CodePipeline of failure
func (r *Runner) reportFailure(ctx context.Context, logger *zap.Logger, jobID, message string) error {
	_, err := r.pipeline.PutJobFailureResult(ctx, &codepipeline.PutJobFailureResultInput{
		JobId: aws.String(jobID),
		FailureDetails: &types.FailureDetails{
			Type:    types.FailureTypeJobFailed,
			Message: aws.String(truncateMessage(message, maxFailureMessage)),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to report failure to CodePipeline: %w", err)
	}
	logger.Info("reported job failure")
	return nil
}

// truncateMessage cuts message to at most limit bytes without splitting a rune.
func truncateMessage(message string, limit int) string {
	if len(message) <= limit {
		return message
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}

// isTemplate reports whether path is a template the batch has already
// resolved. Templates stay out of the output artifact.
func isTemplate(path string) bool {
	return strings.HasSuffix(path, resolver.TemplateSuffix)
}
