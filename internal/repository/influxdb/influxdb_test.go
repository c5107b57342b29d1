package influxdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"go.uber.org/zap/zaptest"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

func TestBuildSeriesQuery(t *testing.T) {
	q := buildSeriesQuery("farm", "sensor_data", models.Moisture, 24, 500)
	for _, want := range []string{
		`from(bucket: "farm")`,
		`range(start: -24h)`,
		`r._measurement == "sensor_data" and r._field == "MO"`,
		`limit(n: 500)`,
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
	if !strings.HasSuffix(q, "|> sort(columns: [\"_time\"])\n") {
		t.Errorf("query must end sorted ascending:\n%s", q)
	}
}

func TestSampleFields(t *testing.T) {
	tp, pump := 22.5, 1
	fields := sampleFields(models.Sample{Temperature: &tp, Pump: &pump})
	if len(fields) != 2 || fields["TP"] != 22.5 || fields["Pump"] != int64(1) {
		t.Fatalf("fields = %v", fields)
	}
	if len(sampleFields(models.Sample{})) != 0 {
		t.Error("empty sample produced fields")
	}
}

const seriesCSV = `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,double,string,string
#group,false,false,true,true,false,false,true,true
#default,_result,,,,,,,
,result,table,_start,_stop,_time,_value,_field,_measurement
,,0,2025-06-01T00:00:00Z,2025-06-02T00:00:00Z,2025-06-01T10:00:00Z,21.5,TP,sensor_data
,,0,2025-06-01T00:00:00Z,2025-06-02T00:00:00Z,2025-06-01T10:05:00Z,22,TP,sensor_data

`

func TestSeries(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/query" {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		query = string(b)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		io.WriteString(w, seriesCSV)
	}))
	defer srv.Close()

	client := influxdb2.NewClient(srv.URL, "token")
	repo := newRepository(client, Config{Org: "farm", Bucket: "station"}, zaptest.NewLogger(t))
	defer client.Close()

	points, err := repo.Series(context.Background(), models.Temperature, 24, 500)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(points) != 2 || points[0].Value != 21.5 || points[1].Value != 22 {
		t.Fatalf("points = %+v", points)
	}
	if !strings.Contains(query, `r._field == \"TP\"`) {
		t.Errorf("query body did not carry the field filter: %s", query)
	}
}
