package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを探す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordUpstreamResponse_CountsStatusAndLatency は取得元別のステータスとレイテンシが記録されることを検証する。
func TestRecordUpstreamResponse_CountsStatusAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamResponse("drupal", 200, 100*time.Millisecond)
	c.RecordUpstreamResponse("drupal", 200, 300*time.Millisecond)
	c.RecordUpstreamResponse("wordpress", 503, 50*time.Millisecond)

	mf := findMetricFamily(t, reg, "cmsshowcase_upstream_responses_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		source := labelValue(m, "source")
		code := labelValue(m, "status_code")
		val := m.GetCounter().GetValue()
		switch {
		case source == "drupal" && code == "200":
			if val != 2 {
				t.Errorf("drupal/200 = %v, want 2", val)
			}
		case source == "wordpress" && code == "503":
			if val != 1 {
				t.Errorf("wordpress/503 = %v, want 1", val)
			}
		default:
			t.Errorf("想定外のラベル: source=%s status_code=%s", source, code)
		}
	}

	latency := findMetricFamily(t, reg, "cmsshowcase_upstream_latency_seconds")
	for _, m := range latency.GetMetric() {
		if labelValue(m, "source") != "drupal" {
			continue
		}
		h := m.GetHistogram()
		if h.GetSampleCount() != 2 {
			t.Errorf("drupal sample count = %d, want 2", h.GetSampleCount())
		}
		if h.GetSampleSum() < 0.39 || h.GetSampleSum() > 0.41 {
			t.Errorf("drupal sample sum = %v, want ~0.4", h.GetSampleSum())
		}
	}
}

func TestRecordUpstreamFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamFailure("woocommerce", "transport")

	mf := findMetricFamily(t, reg, "cmsshowcase_upstream_failures_total")
	m := mf.GetMetric()[0]
	if labelValue(m, "reason") != "transport" {
		t.Errorf("reason = %q, want transport", labelValue(m, "reason"))
	}
	if m.GetCounter().GetValue() != 1 {
		t.Errorf("upstream_failures_total = %v, want 1", m.GetCounter().GetValue())
	}
}

// TestRecordFallback_LabelsSourceAndKind はサンプル代替が取得元と種別で区別されることを検証する。
func TestRecordFallback_LabelsSourceAndKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFallback("drupal", "article")
	c.RecordFallback("drupal", "event")
	c.RecordFallback("drupal", "event")

	mf := findMetricFamily(t, reg, "cmsshowcase_sample_fallbacks_total")
	for _, m := range mf.GetMetric() {
		want := 1.0
		if labelValue(m, "kind") == "event" {
			want = 2
		}
		if got := m.GetCounter().GetValue(); got != want {
			t.Errorf("kind=%s: got %v, want %v", labelValue(m, "kind"), got, want)
		}
	}
}

func TestRecordLoginAndMutation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordLogin("rejected")
	c.RecordMutation("create", "success")
	c.RecordMutation("update", "permission_denied")

	if n := len(findMetricFamily(t, reg, "cmsshowcase_logins_total").GetMetric()); n != 2 {
		t.Errorf("logins_total label combinations = %d, want 2", n)
	}
	if n := len(findMetricFamily(t, reg, "cmsshowcase_mutations_total").GetMetric()); n != 2 {
		t.Errorf("mutations_total label combinations = %d, want 2", n)
	}
}

// TestRecordOrderCreated_CountsOrdersAndLines は注文数と明細行数が加算されることを検証する。
func TestRecordOrderCreated_CountsOrdersAndLines(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOrderCreated(2)
	c.RecordOrderCreated(3)

	orders := findMetricFamily(t, reg, "cmsshowcase_orders_created_total").GetMetric()[0].GetCounter().GetValue()
	if orders != 2 {
		t.Errorf("orders_created_total = %v, want 2", orders)
	}
	lines := findMetricFamily(t, reg, "cmsshowcase_order_lines_total").GetMetric()[0].GetCounter().GetValue()
	if lines != 5 {
		t.Errorf("order_lines_total = %v, want 5", lines)
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorとNopがインターフェースを満たすことを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
	var _ MetricsCollector = Nop{}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリに登録した場合に干渉しないことを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	_ = NewCollector(reg2)

	c1.RecordLogin("success")

	families, err := reg2.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "cmsshowcase_logins_total" && len(mf.GetMetric()) > 0 {
			t.Error("reg2 にreg1の記録が漏れている")
		}
	}
}
