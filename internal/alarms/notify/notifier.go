package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	alarmapp "reef-cloud/internal/alarms/application"
	alarms "reef-cloud/internal/alarms/domain"
	masterdata "reef-cloud/internal/masterdata/domain"
)

// TankReader loads tank metadata for notification text.
type TankReader interface {
	Get(ctx context.Context, id int64) (*masterdata.Tank, error)
}

// ParameterReader loads parameter metadata for notification text.
type ParameterReader interface {
	Get(ctx context.Context, id int64) (*masterdata.Parameter, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders breach events and delivers them via a channel.
// Repeated breaches of the same alarm are rate limited by a cooldown,
// and identical notifications are suppressed within a dedupe window.
type Notifier struct {
	tanks        TankReader
	parameters   ParameterReader
	channel      Channel
	template     *Template
	clock        Clock
	mu           sync.Mutex
	sent         map[string]sendRecord
	cooldown     time.Duration
	dedupeWindow time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithCooldown sets a minimum interval between notifications for the same alarm and direction.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// NewNotifier constructs a notifier.
func NewNotifier(tanks TankReader, parameters ParameterReader, channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alarm notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		tanks:      tanks,
		parameters: parameters,
		channel:    channel,
		template:   template,
		clock:      systemClock{},
		sent:       make(map[string]sendRecord),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements AlarmNotifier.
func (n *Notifier) Notify(ctx context.Context, event alarmapp.AlarmEvent) {
	if n == nil || n.channel == nil {
		return
	}
	data := n.buildTemplateData(ctx, event)
	content, err := n.template.Render(data)
	if err != nil {
		return
	}
	key := notificationKey(event.Alarm.ID, event.Type)
	if !n.shouldSend(key, content) {
		return
	}
	if err := n.channel.Send(ctx, content); err != nil {
		return
	}
	n.markSent(key, content)
}

func (n *Notifier) buildTemplateData(ctx context.Context, event alarmapp.AlarmEvent) TemplateData {
	tankName := fmt.Sprintf("tank %d", event.Alarm.TankID)
	if n.tanks != nil {
		if tank, err := n.tanks.Get(ctx, event.Alarm.TankID); err == nil && tank != nil && tank.Name != "" {
			tankName = tank.Name
		}
	}
	parameterName := fmt.Sprintf("parameter %d", event.Alarm.ParameterID)
	if n.parameters != nil {
		if parameter, err := n.parameters.Get(ctx, event.Alarm.ParameterID); err == nil && parameter != nil && parameter.Name != "" {
			parameterName = parameter.Name
		}
	}

	limit := ""
	switch event.Type {
	case alarms.BreachHigh:
		if event.Alarm.HighLimit != nil {
			limit = "> " + formatFloat(*event.Alarm.HighLimit)
		}
	case alarms.BreachLow:
		if event.Alarm.LowLimit != nil {
			limit = "< " + formatFloat(*event.Alarm.LowLimit)
		}
	}

	at := event.Time
	if at.IsZero() {
		at = n.clock.Now()
	}

	return TemplateData{
		Tank:       tankName,
		TankID:     event.Alarm.TankID,
		Parameter:  parameterName,
		Alarm:      event.Alarm.Name,
		AlarmID:    event.Alarm.ID,
		Value:      formatFloat(event.Value),
		Limit:      limit,
		Time:       at.UTC().Format(time.RFC3339),
		Severity:   event.Alarm.Severity,
		Suggestion: suggestionFor(event.Alarm.Severity),
		Event:      event.Type,
		EventLabel: eventLabel(event.Type),
	}
}

func eventLabel(event string) string {
	switch event {
	case alarms.BreachHigh:
		return "High"
	case alarms.BreachLow:
		return "Low"
	default:
		return event
	}
}

func suggestionFor(severity string) string {
	switch strings.TrimSpace(strings.ToLower(severity)) {
	case "critical", "high":
		return "Check the tank immediately and verify dosing equipment."
	case "medium":
		return "Verify the reading and take action if it persists."
	default:
		return "Monitor the parameter."
	}
}

func formatFloat(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func (n *Notifier) shouldSend(key, content string) bool {
	if n == nil {
		return false
	}
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(key, content string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.sent[key] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func notificationKey(alarmID int64, eventType string) string {
	return fmt.Sprintf("%d|%s", alarmID, eventType)
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
