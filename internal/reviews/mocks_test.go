package reviews

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/safari-bookings/internal/fraud"
	"github.com/richxcame/safari-bookings/pkg/eventbus"
	"github.com/stretchr/testify/mock"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateReview(ctx context.Context, review *Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockRepository) GetReviewByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	args := m.Called(ctx, id)
	review, _ := args.Get(0).(*Review)
	return review, args.Error(1)
}

func (m *mockRepository) GetReviewByBookingAndUser(ctx context.Context, bookingID, userID uuid.UUID) (*Review, error) {
	args := m.Called(ctx, bookingID, userID)
	review, _ := args.Get(0).(*Review)
	return review, args.Error(1)
}

func (m *mockRepository) UpdateModerationStatus(ctx context.Context, id uuid.UUID, status ModerationStatus, moderatorID uuid.UUID, note string, at time.Time) error {
	args := m.Called(ctx, id, status, moderatorID, note, at)
	return args.Error(0)
}

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) AnalyzeReview(ctx context.Context, review fraud.ReviewSubmission) *fraud.FraudVerdict {
	args := m.Called(ctx, review)
	verdict, _ := args.Get(0).(*fraud.FraudVerdict)
	return verdict
}

func (m *mockAnalyzer) ForgetReview(ctx context.Context, verdict *fraud.FraudVerdict) {
	m.Called(ctx, verdict)
}

// mockFraudRepository feeds a real fraud.Service in end-to-end submission tests
type mockFraudRepository struct {
	mock.Mock
}

func (m *mockFraudRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*fraud.UserRecord, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*fraud.UserRecord)
	return user, args.Error(1)
}

func (m *mockFraudRepository) GetReviewsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]fraud.ReviewRecord, error) {
	args := m.Called(ctx, userID, limit)
	reviews, _ := args.Get(0).([]fraud.ReviewRecord)
	return reviews, args.Error(1)
}

func (m *mockFraudRepository) CountVerifiedBookings(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockFraudRepository) GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*fraud.BookingRecord, error) {
	args := m.Called(ctx, bookingID)
	booking, _ := args.Get(0).(*fraud.BookingRecord)
	return booking, args.Error(1)
}

func (m *mockFraudRepository) GetFraudStatistics(ctx context.Context, since time.Time) (*fraud.FraudStatistics, error) {
	args := m.Called(ctx, since)
	stats, _ := args.Get(0).(*fraud.FraudStatistics)
	return stats, args.Error(1)
}

// establishedReviewerRepository describes a year-old account with ten verified
// bookings and twenty 4-star reviews whose booking ended two days before now
func establishedReviewerRepository(userID uuid.UUID, now time.Time) *mockFraudRepository {
	history := make([]fraud.ReviewRecord, 20)
	for i := range history {
		history[i] = fraud.ReviewRecord{
			ID:        uuid.New(),
			UserID:    userID,
			Content:   "Comfortable lodge and a patient guide on the crater lakes walk.",
			Rating:    4,
			CreatedAt: now.Add(-time.Duration(i+10) * 24 * time.Hour),
		}
	}
	ended := now.Add(-48 * time.Hour)

	repo := new(mockFraudRepository)
	repo.On("GetUserByID", mock.Anything, userID).Return(&fraud.UserRecord{ID: userID, CreatedAt: now.Add(-400 * 24 * time.Hour)}, nil)
	repo.On("GetReviewsByUser", mock.Anything, userID, mock.Anything).Return(history, nil)
	repo.On("CountVerifiedBookings", mock.Anything, userID).Return(10, nil)
	repo.On("GetBookingByID", mock.Anything, mock.Anything).Return(&fraud.BookingRecord{UserID: userID, Status: "completed", EndDate: &ended}, nil)
	return repo
}

// recordingPublisher captures events published from background goroutines
type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]*eventbus.Event
	err    error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(map[string][]*eventbus.Event)}
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, event *eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[subject] = append(p.events[subject], event)
	return p.err
}

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[subject])
}

func (p *recordingPublisher) first(subject string) *eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events[subject]) == 0 {
		return nil
	}
	return p.events[subject][0]
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitReview(ctx context.Context, req SubmitReviewRequest) (*Review, error) {
	args := m.Called(ctx, req)
	review, _ := args.Get(0).(*Review)
	return review, args.Error(1)
}

type mockSubscriber struct {
	mock.Mock
}

func (m *mockSubscriber) Subscribe(ctx context.Context, subject, consumerName string, handler eventbus.HandlerFunc) error {
	args := m.Called(ctx, subject, consumerName, handler)
	return args.Error(0)
}

func verdictWithScore(score int, flags map[string]bool) *fraud.FraudVerdict {
	return &fraud.FraudVerdict{
		RiskScore:       score,
		RiskFactors:     []fraud.RiskFactor{},
		Flags:           flags,
		Recommendations: []string{},
	}
}

func validRequest() SubmitReviewRequest {
	return SubmitReviewRequest{
		UserID:    uuid.New(),
		BookingID: uuid.New(),
		Title:     "Murchison Falls launch trip",
		Content:   "The boat ride to the bottom of the falls was loud and beautiful. We saw crocodiles and a shoebill.",
		Rating:    5,
	}
}
