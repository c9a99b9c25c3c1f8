package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/pkg/rabbitmq"
	"GeoAuthPlatform/services/geoauth-service/internal/domain"
)

// Publisher интерфейс публикации сообщений в очередь
type Publisher interface {
	Publish(ctx context.Context, body []byte, options ...rabbitmq.PublishOption) error
}

// Dispatcher асинхронно отправляет события аудита в RabbitMQ.
// Отправка не блокирует обработку запроса: при переполнении буфера
// событие отбрасывается с записью в лог, сбой брокера не влияет
// на ответ клиенту
type Dispatcher struct {
	producer Publisher
	logger   logger.Logger
	events   chan domain.AuditEvent
	wg       sync.WaitGroup
	done     chan struct{}
}

// NewDispatcher создает диспетчер и запускает фоновую отправку
func NewDispatcher(producer Publisher, log logger.Logger, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	d := &Dispatcher{
		producer: producer,
		logger:   log,
		events:   make(chan domain.AuditEvent, bufferSize),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Record ставит событие в очередь на отправку, не блокируя вызывающего
func (d *Dispatcher) Record(event domain.AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case d.events <- event:
	default:
		d.logger.Warn("audit event dropped, buffer full",
			logger.String("type", event.Type))
	}
}

// Close останавливает диспетчер, дослав накопленные события
func (d *Dispatcher) Close() {
	close(d.done)
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.events:
			d.publish(event)
		case <-d.done:
			// Отправляем оставшиеся события перед выходом
			for {
				select {
				case event := <-d.events:
					d.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) publish(event domain.AuditEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("failed to marshal audit event",
			logger.String("type", event.Type),
			logger.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.producer.Publish(ctx, body); err != nil {
		d.logger.Error("failed to publish audit event",
			logger.String("type", event.Type),
			logger.Error(err))
	}
}
