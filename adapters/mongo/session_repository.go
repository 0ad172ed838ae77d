package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
)

const sessionsCollection = "sessions"

// SessionRepository stores sessions and their mood timeline, one document
// per session with transitions pushed onto the timeline array
type SessionRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new MongoDB session repository
func NewSessionRepository(db *mongo.Database, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		collection: db.Collection(sessionsCollection),
		logger:     logger,
	}
}

// EnsureIndexes creates the index used by GetLatest
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "started_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	return nil
}

// Create implements repositories.SessionRepository
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	r.logger.Info("Session stored", zap.String("sessionID", session.ID), zap.String("streamID", session.Stream.ID))
	return nil
}

// AppendTimeline implements repositories.SessionRepository
func (r *SessionRepository) AppendTimeline(ctx context.Context, sessionID string, entry entities.TimelineEntry) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$push": bson.M{"timeline": entry}},
	)
	if err != nil {
		return fmt.Errorf("failed to append timeline: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session with ID %s not found", sessionID)
	}
	return nil
}

// Finish implements repositories.SessionRepository
func (r *SessionRepository) Finish(ctx context.Context, session *entities.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": session.ID},
		bson.M{"$set": bson.M{
			"status":     session.Status,
			"ended_at":   session.EndedAt,
			"end_reason": session.EndReason,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session with ID %s not found", session.ID)
	}
	return nil
}

// GetByID implements repositories.SessionRepository
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	if id == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	var session entities.Session
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// GetLatest implements repositories.SessionRepository
func (r *SessionRepository) GetLatest(ctx context.Context) (*entities.Session, error) {
	opts := options.FindOne().SetSort(bson.M{"started_at": -1})

	var session entities.Session
	err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No session yet
		}
		return nil, fmt.Errorf("failed to get latest session: %w", err)
	}
	return &session, nil
}
