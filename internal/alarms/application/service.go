package application

import (
	"context"
	"errors"
	"log"
	"time"

	alarms "reef-cloud/internal/alarms/domain"
	readings "reef-cloud/internal/readings/domain"
)

// AlarmNotifier publishes breach events.
type AlarmNotifier interface {
	Notify(ctx context.Context, event AlarmEvent)
}

// AlarmEvent describes one reading breaching one alarm band.
type AlarmEvent struct {
	Type  string       `json:"type"`
	Alarm alarms.Alarm `json:"alarm"`
	Value float64      `json:"value"`
	Time  time.Time    `json:"time"`
}

// AlarmLister loads the alarms watching a tank.
type AlarmLister interface {
	ListByTank(ctx context.Context, tankID int64) ([]alarms.Alarm, error)
}

// Service evaluates newly stored readings against alarm bands. It is
// wired behind the sync pipeline, so only readings that did not exist
// before are evaluated and repeated syncs of the same window stay
// silent.
type Service struct {
	alarms   AlarmLister
	notifier AlarmNotifier
	logger   *log.Logger
}

// NewService constructs the evaluation service.
func NewService(lister AlarmLister, notifier AlarmNotifier, logger *log.Logger) (*Service, error) {
	if lister == nil {
		return nil, errors.New("alarms: nil alarm lister")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{alarms: lister, notifier: notifier, logger: logger}, nil
}

// ReadingsStored evaluates a batch of newly stored readings for one
// tank. Evaluation failures are logged, never propagated: alarming is
// best effort and must not fail ingestion.
func (s *Service) ReadingsStored(ctx context.Context, tankID int64, stored []readings.ParameterReading) {
	if s == nil || len(stored) == 0 {
		return
	}

	list, err := s.alarms.ListByTank(ctx, tankID)
	if err != nil {
		s.logger.Printf("alarm evaluation skipped for tank %d: %v", tankID, err)
		return
	}
	if len(list) == 0 {
		return
	}

	byParameter := make(map[int64][]alarms.Alarm, len(list))
	for _, alarm := range list {
		byParameter[alarm.ParameterID] = append(byParameter[alarm.ParameterID], alarm)
	}

	for _, reading := range stored {
		for _, alarm := range byParameter[reading.ParameterID] {
			direction, breached := alarm.Breach(reading.Value)
			if !breached {
				continue
			}
			s.logger.Printf("alarm %q breached %s by %.3f at %s", alarm.Name, direction, reading.Value, reading.Time.Format(time.RFC3339))
			if s.notifier != nil {
				s.notifier.Notify(ctx, AlarmEvent{
					Type:  direction,
					Alarm: alarm,
					Value: reading.Value,
					Time:  reading.Time,
				})
			}
		}
	}
}
