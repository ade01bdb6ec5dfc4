package orderflow

import (
	"context"

	"github.com/randalmurphal/orderflow/pkg/orderflow/aggregate"
	"github.com/randalmurphal/orderflow/pkg/orderflow/deadletter"
	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/filter"
	"github.com/randalmurphal/orderflow/pkg/orderflow/notify"
	"github.com/randalmurphal/orderflow/pkg/orderflow/route"
	"github.com/randalmurphal/orderflow/pkg/orderflow/store"
)

// Subscriber names on the fan-out bus, in delivery order.
const (
	SubscriberRouter        = "router"
	SubscriberAggregator    = "aggregator"
	SubscriberNotifications = "notifications"
)

// Dead letter reason prefixes for consumer faults.
const (
	NotificationErrorPrefix = "Notification error: "
	AggregationErrorPrefix  = "Aggregation error: "
)

// Pipeline owns every stage and exposes the read surface used by the
// REST adapter. It is safe for concurrent use.
type Pipeline struct {
	settings Settings

	deadLetters   *deadletter.Channel
	filter        *filter.Filter
	bus           *event.Bus[*event.FilteredOrderCreated]
	router        *route.Router
	highValue     *route.HighValueHandler
	standard      *route.StandardHandler
	aggregator    *aggregate.Aggregator
	listener      *aggregate.Listener
	notifications *notify.Store
	publisher     *Publisher
}

// New builds a pipeline sized by settings. Zero or invalid fields take
// their defaults.
func New(settings Settings, opts ...Option) *Pipeline {
	cfg := defaultPipelineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	settings = settings.withDefaults()

	p := &Pipeline{settings: settings}

	p.deadLetters = deadletter.New(
		deadletter.WithCapacity(settings.DeadLetterCapacity),
		deadletter.WithLogger(cfg.logger),
		deadletter.WithMetrics(cfg.metrics),
		deadletter.WithClock(cfg.now),
	)

	p.highValue = route.NewHighValueHandler(
		route.WithCapacity(settings.FlaggedCapacity),
		route.WithLogger(cfg.logger),
	)
	p.standard = route.NewStandardHandler(route.WithLogger(cfg.logger))
	p.router = route.NewRouter(p.highValue, p.standard, p.deadLetters,
		route.WithThreshold(settings.HighValueThreshold),
		route.WithLogger(cfg.logger),
		route.WithMetrics(cfg.metrics),
	)

	p.listener = aggregate.NewListener(aggregate.WithLogger(cfg.logger))
	p.aggregator = aggregate.New(p.listener,
		aggregate.WithBatchSize(settings.BatchSize),
		aggregate.WithCapacity(settings.AggregateCapacity),
		aggregate.WithClock(cfg.now),
		aggregate.WithMetrics(cfg.metrics),
	)

	p.notifications = notify.New(
		notify.WithCapacity(settings.NotificationCapacity),
		notify.WithLogger(cfg.logger),
		notify.WithMetrics(cfg.metrics),
	)

	p.bus = event.NewBus(event.BusConfig[*event.FilteredOrderCreated]{
		Logger:  cfg.logger,
		Spans:   cfg.spans,
		OnError: p.onConsumerError,
	})
	p.bus.Subscribe(SubscriberRouter, p.router)
	p.bus.Subscribe(SubscriberAggregator, p.aggregator)
	p.bus.Subscribe(SubscriberNotifications, p.notifications)

	p.filter = filter.New(p.deadLetters,
		event.HandlerFunc[*event.FilteredOrderCreated](p.bus.Publish),
		filter.WithLogger(cfg.logger),
		filter.WithMetrics(cfg.metrics),
		filter.WithClock(cfg.now),
	)

	p.publisher = NewPublisher(p.filter, opts...)

	return p
}

// onConsumerError dead-letters a failed delivery with the consumer's prefix.
func (p *Pipeline) onConsumerError(ctx context.Context, evt *event.FilteredOrderCreated, subscriber string, err error) {
	var prefix string
	switch subscriber {
	case SubscriberRouter:
		prefix = route.RoutingErrorPrefix
	case SubscriberAggregator:
		prefix = AggregationErrorPrefix
	case SubscriberNotifications:
		prefix = NotificationErrorPrefix
	default:
		prefix = subscriber + " error: "
	}
	p.deadLetters.Report(ctx, evt, prefix+err.Error())
}

// Publish runs order through the pipeline synchronously. A nil order is a no-op.
func (p *Pipeline) Publish(ctx context.Context, order *store.Order) {
	p.publisher.Publish(ctx, order)
}

// PublishEvent runs a raw event through the pipeline synchronously.
func (p *Pipeline) PublishEvent(ctx context.Context, raw *event.OrderCreated) {
	p.publisher.PublishEvent(ctx, raw)
}

// ReportDeadLetter records a payload rejected outside the pipeline,
// such as an invalid order request.
func (p *Pipeline) ReportDeadLetter(ctx context.Context, payload any, reason string) {
	p.deadLetters.Report(ctx, payload, reason)
}

// DeadLetters returns the retained dead letters, newest first.
func (p *Pipeline) DeadLetters() []deadletter.DeadLetter {
	return p.deadLetters.List()
}

// ClearDeadLetters empties the dead letter channel.
func (p *Pipeline) ClearDeadLetters() {
	p.deadLetters.Clear()
}

// FlaggedHighValue returns the high-value review queue, newest first.
func (p *Pipeline) FlaggedHighValue() []*event.FilteredOrderCreated {
	return p.highValue.Flagged()
}

// StandardHandled returns how many orders took the standard route.
func (p *Pipeline) StandardHandled() int64 {
	return p.standard.Handled()
}

// RecentAggregates returns the last fired aggregates, newest first.
func (p *Pipeline) RecentAggregates() []*event.OrderAggregate {
	return p.aggregator.Recent()
}

// PendingAggregate returns the open bucket count for email.
func (p *Pipeline) PendingAggregate(email string) int {
	return p.aggregator.Pending(email)
}

// RecentNotifications returns stored notifications, newest first.
func (p *Pipeline) RecentNotifications() []notify.Notification {
	return p.notifications.Recent()
}

// ClearNotifications empties the notification store.
func (p *Pipeline) ClearNotifications() {
	p.notifications.Clear()
}

// Settings returns the settings the pipeline was built with.
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// Close stops fan-out. Events accepted afterwards reach no consumer.
func (p *Pipeline) Close() error {
	return p.bus.Close()
}
