package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/models"
	"github.com/noah-isme/awards-portal-api/internal/observability"
	"github.com/noah-isme/awards-portal-api/internal/repository"
)

const notificationBufferSize = 16

// ErrNotificationNotFound indicates the notification does not exist for the student.
var ErrNotificationNotFound = errors.New("notification not found")

// StudentNotification is a message to persist and push to one student.
type StudentNotification struct {
	StudentID     uint
	ApplicationID *uint
	AwardID       *uint
	Type          string
	Message       string
}

// NotificationService stores student notifications and streams them to
// connected clients on every API instance.
type NotificationService interface {
	Notify(ctx context.Context, notification StudentNotification) (dto.NotificationResponse, error)
	List(ctx context.Context, studentID uint, req dto.NotificationListRequest) (dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, id, studentID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, studentID uint) (int64, error)
	Subscribe(studentID uint) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

// NotificationFanout names the channels used to reach other instances. NATS
// is preferred when both transports are configured.
type NotificationFanout struct {
	NATS         *nats.Conn
	NATSSubject  string
	Redis        *redis.Client
	RedisChannel string
}

type notificationService struct {
	repo      repository.NotificationRepository
	fanout    NotificationFanout
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	broker    *notificationBroker
	nodeID    string
	now       func() time.Time
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService constructs the notification service.
func NewNotificationService(repo repository.NotificationRepository, fanout NotificationFanout, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		fanout:    fanout,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/awards-portal-api/internal/service/notification"),
		sanitizer: bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
}

func (s *notificationService) Start(ctx context.Context) {
	switch {
	case s.fanout.NATS != nil && s.fanout.NATSSubject != "":
		go s.consumeNATS(ctx)
	case s.fanout.Redis != nil && s.fanout.RedisChannel != "":
		go s.consumeRedis(ctx)
	}
}

func (s *notificationService) Notify(ctx context.Context, notification StudentNotification) (dto.NotificationResponse, error) {
	if notification.StudentID == 0 {
		return dto.NotificationResponse{}, errors.New("student id is required")
	}

	message := plainText(s.sanitizer, notification.Message)
	if message == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	ctx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(
		attribute.Int("notification.student_id", int(notification.StudentID)),
		attribute.String("notification.type", notification.Type),
	))
	defer span.End()

	model := models.Notification{
		StudentID:     notification.StudentID,
		ApplicationID: notification.ApplicationID,
		AwardID:       notification.AwardID,
		Type:          notification.Type,
		Message:       message,
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.broker.broadcast(response.StudentID, response)
	observability.NotificationsDelivered().WithLabelValues(response.Type, "local").Inc()

	if err := s.publish(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to fan out notification")
	}

	return response, nil
}

func (s *notificationService) List(ctx context.Context, studentID uint, req dto.NotificationListRequest) (dto.NotificationListResponse, error) {
	filter := repository.NotificationFilter{
		StudentID:  studentID,
		UnreadOnly: req.UnreadOnly,
		Page:       normalizePage(req.Page),
		PageSize:   clampPageSize(req.PageSize),
	}

	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}
	unread, err := s.repo.CountUnread(ctx, studentID)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	items := make([]dto.NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		items = append(items, dto.NewNotificationResponse(notification))
	}

	return dto.NotificationListResponse{
		Items:      items,
		Unread:     unread,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, studentID uint) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, studentID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, studentID)
}

func (s *notificationService) Subscribe(studentID uint) (<-chan dto.NotificationResponse, func()) {
	channel := make(chan dto.NotificationResponse, notificationBufferSize)

	s.broker.subscribe(studentID, channel)
	observability.NotificationStreamsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(studentID, channel)
			observability.NotificationStreamsActive().Dec()
		})
	}

	return channel, cleanup
}

func (s *notificationService) publish(ctx context.Context, notification dto.NotificationResponse) error {
	payload, err := json.Marshal(notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       s.now().UTC(),
	})
	if err != nil {
		return err
	}

	switch {
	case s.fanout.NATS != nil && s.fanout.NATSSubject != "":
		return s.fanout.NATS.Publish(s.fanout.NATSSubject, payload)
	case s.fanout.Redis != nil && s.fanout.RedisChannel != "":
		return s.fanout.Redis.Publish(ctx, s.fanout.RedisChannel, payload).Err()
	}
	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.fanout.Redis.Subscribe(ctx, s.fanout.RedisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.fanout.NATS.Subscribe(s.fanout.NATSSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to notification subject")
		return
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to drain notification subscription")
	}
}

func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID || event.Notification.StudentID == 0 {
		return
	}

	observability.NotificationsDelivered().WithLabelValues(event.Notification.Type, "remote").Inc()
	s.broker.broadcast(event.Notification.StudentID, event.Notification)
}

func (b *notificationBroker) subscribe(studentID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[studentID]; !exists {
		b.subscribers[studentID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[studentID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(studentID uint, ch chan dto.NotificationResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[studentID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, studentID)
		}
	}
}

// broadcast drops the notification for subscribers whose buffer is full.
func (b *notificationBroker) broadcast(studentID uint, notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[studentID] {
		select {
		case ch <- notification:
		default:
		}
	}
}

type notifyingPublisher struct {
	next          EventPublisher
	notifications NotificationService
	logger        zerolog.Logger
}

// NewNotifyingPublisher forwards every event to next and turns the events a
// student should hear about into notifications.
func NewNotifyingPublisher(next EventPublisher, notifications NotificationService, logger zerolog.Logger) EventPublisher {
	return &notifyingPublisher{
		next:          next,
		notifications: notifications,
		logger:        logger.With().Str("component", "notifying_publisher").Logger(),
	}
}

func (p *notifyingPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	var err error
	if p.next != nil {
		err = p.next.Publish(ctx, subject, event)
	}

	if notification, ok := notificationFor(event); ok {
		if _, notifyErr := p.notifications.Notify(ctx, notification); notifyErr != nil {
			p.logger.Warn().Err(notifyErr).Str("subject", subject).Msg("failed to notify student")
		}
	}

	return err
}

func notificationFor(event interface{}) (StudentNotification, bool) {
	switch e := event.(type) {
	case ApplicationSubmittedEvent:
		applicationID, awardID := e.ApplicationID, e.AwardID
		return StudentNotification{
			StudentID:     e.StudentID,
			ApplicationID: &applicationID,
			AwardID:       &awardID,
			Type:          models.NotificationApplicationReceived,
			Message:       fmt.Sprintf("We received your application for %s.", awardName(e.AwardTitle)),
		}, true
	case ApplicationStatusEvent:
		if e.From == e.To {
			return StudentNotification{}, false
		}
		applicationID, awardID := e.ApplicationID, e.AwardID
		return StudentNotification{
			StudentID:     e.StudentID,
			ApplicationID: &applicationID,
			AwardID:       &awardID,
			Type:          models.NotificationStatusChanged,
			Message:       fmt.Sprintf("Your application for %s is now %s.", awardName(e.AwardTitle), strings.ReplaceAll(e.To, "_", " ")),
		}, true
	default:
		return StudentNotification{}, false
	}
}

func awardName(title string) string {
	if strings.TrimSpace(title) == "" {
		return "the award"
	}
	return title
}
