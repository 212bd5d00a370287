package events

import "testing"

func TestKafkaPublisherTopicRouting(t *testing.T) {
	t.Parallel()

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, map[string]string{
		"openfinance.consent.revoked": "openfinance.consent.audit",
	})
	if err != nil {
		t.Fatalf("new publisher failed: %v", err)
	}
	defer p.Close()

	cases := []struct {
		eventType string
		want      string
	}{
		{"openfinance.payment.accepted", "openfinance.payment"},
		{"openfinance.fx.deal.booked", "openfinance.fx"},
		{"openfinance.consent.revoked", "openfinance.consent.audit"},
		{"heartbeat", "heartbeat"},
	}
	for _, tc := range cases {
		if got := p.topicFor(tc.eventType); got != tc.want {
			t.Fatalf("topicFor(%s) = %s, want %s", tc.eventType, got, tc.want)
		}
	}
}

func TestKafkaPublisherRequiresBrokers(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaPublisher(nil, nil); err == nil {
		t.Fatal("expected an error without brokers")
	}
}
