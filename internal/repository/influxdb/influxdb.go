// Package influxdb serves range queries straight from the station's InfluxDB
// bucket and can archive live samples into it.
package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

type Repository struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPI
	queryAPI    api.QueryAPI
	bucket      string
	measurement string
	logger      *zap.Logger
}

// NewRepository connects and checks the server is healthy
func NewRepository(ctx context.Context, cfg Config, logger *zap.Logger) (*Repository, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB is not healthy: %s", health.Status)
	}
	return newRepository(client, cfg, logger), nil
}

func newRepository(client influxdb2.Client, cfg Config, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "sensor_data"
	}
	r := &Repository{
		client:      client,
		writeAPI:    client.WriteAPI(cfg.Org, cfg.Bucket),
		queryAPI:    client.QueryAPI(cfg.Org),
		bucket:      cfg.Bucket,
		measurement: measurement,
		logger:      logger.With(zap.String("component", "influxdb")),
	}
	go r.logWriteErrors()
	return r
}

func (r *Repository) logWriteErrors() {
	for err := range r.writeAPI.Errors() {
		r.logger.Warn("Archive write failed", zap.Error(err))
	}
}

// Close flushes pending writes and closes the client
func (r *Repository) Close() {
	r.writeAPI.Flush()
	r.client.Close()
}

// WriteSample archives a live sample. Writes are batched and asynchronous.
func (r *Repository) WriteSample(s models.Sample) {
	fields := sampleFields(s)
	if len(fields) == 0 {
		return
	}
	r.writeAPI.WritePoint(influxdb2.NewPoint(r.measurement, nil, fields, s.Timestamp))
}

func sampleFields(s models.Sample) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, key := range models.NumericKeys {
		if v, ok := s.Value(key); ok {
			fields[string(key)] = v
		}
	}
	if s.Pump != nil {
		fields[string(models.Pump)] = int64(*s.Pump)
	}
	return fields
}

// Series returns one metric over the last hours, oldest first, keeping the
// newest limit points
func (r *Repository) Series(ctx context.Context, key models.SensorKey, hours, limit int) ([]models.Point, error) {
	query := buildSeriesQuery(r.bucket, r.measurement, key, hours, limit)

	result, err := r.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer result.Close()

	var points []models.Point
	for result.Next() {
		record := result.Record()
		var v float64
		switch val := record.Value().(type) {
		case float64:
			v = val
		case int64:
			v = float64(val)
		case uint64:
			v = float64(val)
		default:
			continue
		}
		ts := record.Time()
		points = append(points, models.Point{
			Timestamp: ts,
			Value:     v,
			Time:      ts.Local().Format(time.TimeOnly),
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("error parsing results: %w", result.Err())
	}
	return points, nil
}

func buildSeriesQuery(bucket, measurement string, key models.SensorKey, hours, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n", bucket)
	fmt.Fprintf(&b, "  |> range(start: -%dh)\n", hours)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q and r._field == %q)\n", measurement, string(key))
	if limit > 0 {
		b.WriteString("  |> sort(columns: [\"_time\"], desc: true)\n")
		fmt.Fprintf(&b, "  |> limit(n: %d)\n", limit)
	}
	b.WriteString("  |> sort(columns: [\"_time\"])\n")
	return b.String()
}
