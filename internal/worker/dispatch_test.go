package worker_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrider/windrider/internal/worker"
)

func TestDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name      string
		attrs     map[string]string
		body      string
		failLat   map[float64]bool
		wantType  string
		wantErrIs error
		wantErr   bool
	}{
		{
			name:     "warm-up from body",
			body:     `{"job_type":"weather_warmup"}`,
			wantType: worker.JobWeatherWarmup,
		},
		{
			name:     "job type attribute wins over body",
			attrs:    map[string]string{worker.JobTypeAttribute: worker.JobHealthCheck},
			body:     `{"job_type":"weather_warmup"}`,
			wantType: worker.JobHealthCheck,
		},
		{
			name:     "attribute with empty body",
			attrs:    map[string]string{worker.JobTypeAttribute: worker.JobWeatherWarmup},
			wantType: worker.JobWeatherWarmup,
		},
		{
			name:     "warm-up mostly failing",
			body:     `{"job_type":"weather_warmup"}`,
			failLat:  map[float64]bool{52.25: true},
			wantType: worker.JobWeatherWarmup,
			wantErr:  true,
		},
		{
			name:      "unknown job",
			body:      `{"job_type":"alert_evaluation"}`,
			wantType:  "alert_evaluation",
			wantErrIs: worker.ErrUnknownJob,
		},
		{
			name:      "malformed body",
			body:      `{"job_type":`,
			wantErrIs: worker.ErrMalformedJob,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := worker.NewRefreshJob(worker.RefreshJobConfig{
				Logger:  zerolog.Nop(),
				Routes:  seedRoutes(t, line(52.0, 4.0)),
				Weather: &recordingWeather{failLat: tt.failLat},
			})
			dispatcher := worker.NewDispatcher(job, zerolog.Nop())

			jobType, err := dispatcher.Dispatch(context.Background(), tt.attrs, []byte(tt.body))

			assert.Equal(t, tt.wantType, jobType)
			switch {
			case tt.wantErrIs != nil:
				assert.ErrorIs(t, err, tt.wantErrIs)
			case tt.wantErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
			}
		})
	}
}
