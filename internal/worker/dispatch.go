package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Job types accepted on the worker subscription.
const (
	JobWeatherWarmup = "weather_warmup"
	JobHealthCheck   = "health_check"
)

// JobTypeAttribute is the message attribute that may carry the job type
// instead of the JSON body.
const JobTypeAttribute = "job_type"

// Dispatch errors. Both mark messages that will never succeed, so the
// subscriber acknowledges them instead of asking for redelivery.
var (
	ErrUnknownJob   = errors.New("unknown job type")
	ErrMalformedJob = errors.New("malformed job message")
)

// JobMessage is the JSON body of a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// Dispatcher maps job types to the runs that implement them.
type Dispatcher struct {
	jobs   map[string]func(context.Context) error
	logger zerolog.Logger
}

// NewDispatcher registers the refresh job's warm-up and health check runs.
func NewDispatcher(refreshJob *RefreshJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		jobs: map[string]func(context.Context) error{
			JobWeatherWarmup: func(ctx context.Context) error { return warmup(ctx, refreshJob) },
			JobHealthCheck:   refreshJob.HealthCheck,
		},
		logger: logger,
	}
}

// Dispatch resolves the job type from the attributes or, failing that, the
// JSON body, and runs the job. It returns the resolved job type.
func (d *Dispatcher) Dispatch(ctx context.Context, attrs map[string]string, data []byte) (string, error) {
	jobType := attrs[JobTypeAttribute]
	if jobType == "" {
		var msg JobMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedJob, err)
		}
		jobType = msg.JobType
	}

	run, ok := d.jobs[jobType]
	if !ok {
		return jobType, ErrUnknownJob
	}
	d.logger.Debug().Str("job_type", jobType).Msg("dispatching job")
	return jobType, run(ctx)
}

// warmup fails when more points failed than succeeded, so a mostly broken
// provider gets the message redelivered.
func warmup(ctx context.Context, job *RefreshJob) error {
	result, err := job.Run(ctx)
	if err != nil {
		return err
	}
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalPoints)
	}
	return nil
}
