package telemetry_test

import (
	"context"
	"testing"

	"campusflow/internal/config"
	"campusflow/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestTelemetry_Counters(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	tel, err := telemetry.NewWithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	tel.RecordRegistration(ctx, telemetry.OutcomeSuccess)
	tel.RecordRegistration(ctx, telemetry.OutcomeSuccess)
	tel.RecordRegistration(ctx, telemetry.OutcomeRejected)
	tel.RecordCheckIn(ctx, telemetry.OutcomeRepeat)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, m.Name)
			totals[m.Name] = map[string]int64{}
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				totals[m.Name][outcome.AsString()] = dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{"success": 2, "rejected": 1}, totals["campusflow_registrations_total"])
	assert.Equal(t, map[string]int64{"repeat": 1}, totals["campusflow_check_ins_total"])
}

func TestTelemetry_DisabledIsNoop(t *testing.T) {
	tel, err := telemetry.New(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())

	tel.RecordRegistration(context.Background(), telemetry.OutcomeSuccess)
	assert.NoError(t, tel.Shutdown(context.Background()))

	var nilTel *telemetry.Telemetry
	nilTel.RecordCheckIn(context.Background(), telemetry.OutcomeError)
	assert.NoError(t, nilTel.Shutdown(context.Background()))
}
