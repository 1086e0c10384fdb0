package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"citamed/internal/appointment/models"
	"citamed/internal/appointment/store"
	"citamed/internal/events"
	dErrors "citamed/pkg/domain-errors"
	"citamed/pkg/requestcontext"
)

type publishedMessage struct {
	Topic   string
	Key     string
	Payload any
}

// fakePublisher records published messages and fails on demand.
type fakePublisher struct {
	published []publishedMessage
	failNext  error
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, payload any) (string, error) {
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return "", err
	}
	p.published = append(p.published, publishedMessage{Topic: topic, Key: key, Payload: payload})
	return fmt.Sprintf("%s/0@%d", topic, len(p.published)), nil
}

// stubIDs yields deterministic sequential ids.
type stubIDs struct {
	n int
}

func (g *stubIDs) NewID() string {
	g.n++
	return fmt.Sprintf("id-%04d", g.n)
}

func (g *stubIDs) NewPrefixedID(prefix string) string {
	g.n++
	return fmt.Sprintf("%s-%04d", prefix, g.n)
}

type ServiceSuite struct {
	suite.Suite

	store     *store.InMemoryStore
	publisher *fakePublisher
	service   *Service
	now       time.Time
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.publisher = &fakePublisher{}

	svc, err := New(s.store, s.publisher, &stubIDs{}, WithLogger(slog.Default()))
	s.Require().NoError(err)
	s.service = svc

	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) createPending() *CreateResult {
	res, err := s.service.Create(s.ctx, CreateInput{
		InsuredID:  "123",
		ScheduleID: 42,
		CountryISO: "PE",
	})
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) TestCreate() {
	s.Run("persists pending appointment and publishes routed message", func() {
		s.SetupTest()

		res := s.createPending()

		s.Equal("00123", res.InsuredID)
		s.Equal("pending", res.Status)
		s.Equal("PE", res.CountryISO)
		s.NotEmpty(res.Message)
		s.Equal(s.now, res.CreatedAt)

		appt, err := s.store.FindByID(s.ctx, res.AppointmentID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, appt.Status)

		s.Require().Len(s.publisher.published, 1)
		msg := s.publisher.published[0]
		s.Equal(events.TopicAppointmentsPE, msg.Topic)
		s.Equal(res.AppointmentID, msg.Key)
		queued, ok := msg.Payload.(events.AppointmentQueued)
		s.Require().True(ok)
		s.Equal("00123", queued.InsuredID)
		s.Equal("pending", queued.Status)
	})

	s.Run("routes CL to its own topic", func() {
		s.SetupTest()

		_, err := s.service.Create(s.ctx, CreateInput{InsuredID: "9", ScheduleID: 7, CountryISO: "CL"})
		s.Require().NoError(err)
		s.Require().Len(s.publisher.published, 1)
		s.Equal(events.TopicAppointmentsCL, s.publisher.published[0].Topic)
	})

	s.Run("rejects invalid input before any side effect", func() {
		s.SetupTest()

		cases := []CreateInput{
			{InsuredID: "", ScheduleID: 42, CountryISO: "PE"},
			{InsuredID: "12a", ScheduleID: 42, CountryISO: "PE"},
			{InsuredID: "123", ScheduleID: 0, CountryISO: "PE"},
			{InsuredID: "123", ScheduleID: 42, CountryISO: "pe"},
			{InsuredID: "123", ScheduleID: 42, CountryISO: "BR"},
		}
		for _, in := range cases {
			_, err := s.service.Create(s.ctx, in)
			s.Require().Error(err, "input %+v", in)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "input %+v", in)
		}
		s.Empty(s.publisher.published)
	})

	s.Run("marks appointment failed when publish fails", func() {
		s.SetupTest()
		s.publisher.failNext = errors.New("broker down")

		_, err := s.service.Create(s.ctx, CreateInput{InsuredID: "123", ScheduleID: 42, CountryISO: "PE"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Contains(err.Error(), "failed to process appointment")
		s.Contains(err.Error(), "broker down")

		appts, listErr := s.store.ListByInsured(s.ctx, models.InsuredID("00123"))
		s.Require().NoError(listErr)
		s.Require().Len(appts, 1)
		s.Equal(models.StatusFailed, appts[0].Status)
		s.Equal(publishFailureReason, appts[0].Metadata[models.MetadataKeyFailureReason])
	})
}

func (s *ServiceSuite) TestComplete() {
	s.Run("transitions pending appointment to completed", func() {
		s.SetupTest()
		res := s.createPending()

		later := s.now.Add(time.Minute)
		err := s.service.Complete(requestcontext.WithTime(context.Background(), later), res.AppointmentID, map[string]string{"processedCountry": "PE"})
		s.Require().NoError(err)

		appt, err := s.store.FindByID(s.ctx, res.AppointmentID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, appt.Status)
		s.Require().NotNil(appt.CompletedAt)
		s.Equal(later, *appt.CompletedAt)
		s.Equal("PE", appt.Metadata["processedCountry"])
	})

	s.Run("unknown appointment is not found", func() {
		s.SetupTest()

		err := s.service.Complete(s.ctx, "APT-missing", nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("redelivered completion reports conflict", func() {
		s.SetupTest()
		res := s.createPending()

		s.Require().NoError(s.service.Complete(s.ctx, res.AppointmentID, nil))
		err := s.service.Complete(s.ctx, res.AppointmentID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("cancelled appointment cannot be completed", func() {
		s.SetupTest()
		res := s.createPending()

		_, err := s.service.Cancel(s.ctx, res.AppointmentID, "")
		s.Require().NoError(err)

		err = s.service.Complete(s.ctx, res.AppointmentID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ServiceSuite) TestCancel() {
	s.Run("cancels pending appointment with reason", func() {
		s.SetupTest()
		res := s.createPending()

		appt, err := s.service.Cancel(s.ctx, res.AppointmentID, "patient request")
		s.Require().NoError(err)
		s.Equal(models.StatusCancelled, appt.Status)
		s.Equal("patient request", appt.Metadata[models.MetadataKeyCancellationReason])
	})

	s.Run("cancelling twice is an invariant violation", func() {
		s.SetupTest()
		res := s.createPending()

		_, err := s.service.Cancel(s.ctx, res.AppointmentID, "")
		s.Require().NoError(err)

		_, err = s.service.Cancel(s.ctx, res.AppointmentID, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown appointment is not found", func() {
		s.SetupTest()

		_, err := s.service.Cancel(s.ctx, "APT-missing", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListByInsured() {
	s.Run("returns appointments newest first with total", func() {
		s.SetupTest()

		for i := 0; i < 3; i++ {
			ctx := requestcontext.WithTime(context.Background(), s.now.Add(time.Duration(i)*time.Minute))
			_, err := s.service.Create(ctx, CreateInput{InsuredID: "123", ScheduleID: int64(i + 1), CountryISO: "PE"})
			s.Require().NoError(err)
		}

		res, err := s.service.ListByInsured(s.ctx, "00123")
		s.Require().NoError(err)
		s.Equal(3, res.Total)
		s.Equal("00123", res.InsuredID)
		s.Require().Len(res.Appointments, 3)
		for i := 1; i < len(res.Appointments); i++ {
			s.False(res.Appointments[i].CreatedAt.After(res.Appointments[i-1].CreatedAt))
		}
	})

	s.Run("padded and unpadded ids read the same records", func() {
		s.SetupTest()
		s.createPending()

		short, err := s.service.ListByInsured(s.ctx, "123")
		s.Require().NoError(err)
		padded, err := s.service.ListByInsured(s.ctx, "00123")
		s.Require().NoError(err)
		s.Equal(padded.Total, short.Total)
		s.Equal(1, short.Total)
	})

	s.Run("unknown insured yields empty list", func() {
		s.SetupTest()

		res, err := s.service.ListByInsured(s.ctx, "99999")
		s.Require().NoError(err)
		s.Equal(0, res.Total)
		s.NotNil(res.Appointments)
	})

	s.Run("rejects malformed insured id", func() {
		s.SetupTest()

		_, err := s.service.ListByInsured(s.ctx, "12a45")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestNew() {
	s.Run("requires store", func() {
		_, err := New(nil, &fakePublisher{}, &stubIDs{})
		s.Require().Error(err)
	})

	s.Run("requires publisher", func() {
		_, err := New(store.NewInMemoryStore(), nil, &stubIDs{})
		s.Require().Error(err)
	})

	s.Run("requires id generator", func() {
		_, err := New(store.NewInMemoryStore(), &fakePublisher{}, nil)
		s.Require().Error(err)
	})
}
