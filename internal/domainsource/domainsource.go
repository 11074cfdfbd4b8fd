// Package domainsource reads the fleet-of-users and per-user domain
// inputs (tracked accounts, recent meetings, open commitments) the
// Background Job Runner needs. These collections are owned and written
// by other parts of the ARIA platform; this package only reads them,
// matching spec.md's explicit statement that tables like
// market_signals, meeting_debriefs, and lead_memories are inputs whose
// detailed schemas are out of scope here. Grounded on
// internal/store/mongo's collection-per-concern idiom; each method calls
// the driver's *mongo.Collection directly, with no interface in between.
package domainsource

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/jobrunner"
)

const defaultOpTimeout = 5 * time.Second

// Source reads the Background Job Runner's per-user domain inputs from
// MongoDB.
type Source struct {
	users       *mongodriver.Collection
	entities    *mongodriver.Collection
	meetings    *mongodriver.Collection
	commitments *mongodriver.Collection
	timeout     time.Duration
}

// New constructs a Source over db's onboarded_users, tracked_entities,
// meetings, and commitments collections.
func New(db *mongodriver.Database) *Source {
	return &Source{
		users:       db.Collection("onboarded_users"),
		entities:    db.Collection("tracked_entities"),
		meetings:    db.Collection("meetings"),
		commitments: db.Collection("commitments"),
		timeout:     defaultOpTimeout,
	}
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

type userDoc struct {
	ID       string `bson:"_id"`
	Timezone string `bson:"timezone"`
	Email    string `bson:"email"`
}

// ActiveUsers implements jobrunner.UserSource: every user who has
// completed onboarding, regardless of subscription tier or connection
// state.
func (s *Source) ActiveUsers(ctx context.Context) ([]core.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.users.Find(ctx, bson.M{"onboarded": true})
	if err != nil {
		return nil, fmt.Errorf("domainsource: find active users: %w", err)
	}
	defer cur.Close(ctx)

	var users []core.User
	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("domainsource: decode user: %w", err)
		}
		users = append(users, core.User{ID: doc.ID, Timezone: doc.Timezone, Email: doc.Email})
	}
	return users, cur.Err()
}

// TrackedEntities implements jobrunner.EntitySource: the accounts,
// competitors, and contacts the user has asked ARIA to watch for signals.
func (s *Source) TrackedEntities(ctx context.Context, userID string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.entities.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("domainsource: find tracked entities: %w", err)
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var doc struct {
			Name string `bson:"name"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("domainsource: decode tracked entity: %w", err)
		}
		names = append(names, doc.Name)
	}
	return names, cur.Err()
}

// RecentMeetings implements jobrunner.MeetingSource: the user's meetings
// that have not yet been debriefed. The query applies no time window.
func (s *Source) RecentMeetings(ctx context.Context, userID string) ([]jobrunner.Meeting, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.meetings.Find(ctx, bson.M{"user_id": userID, "debriefed": false})
	if err != nil {
		return nil, fmt.Errorf("domainsource: find recent meetings: %w", err)
	}
	defer cur.Close(ctx)

	var meetings []jobrunner.Meeting
	for cur.Next(ctx) {
		var doc struct {
			ID        string   `bson:"_id"`
			Title     string   `bson:"title"`
			Notes     string   `bson:"notes"`
			Attendees []string `bson:"attendees"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("domainsource: decode meeting: %w", err)
		}
		meetings = append(meetings, jobrunner.Meeting{ID: doc.ID, Title: doc.Title, Notes: doc.Notes, Attendees: doc.Attendees})
	}
	return meetings, cur.Err()
}

// OpenCommitments implements jobrunner.CommitmentSource: every
// commitment not yet marked complete, overdue or not — the job itself
// decides which ones qualify.
func (s *Source) OpenCommitments(ctx context.Context, userID string) ([]jobrunner.Commitment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.commitments.Find(ctx, bson.M{"user_id": userID, "completed": false})
	if err != nil {
		return nil, fmt.Errorf("domainsource: find open commitments: %w", err)
	}
	defer cur.Close(ctx)

	var commitments []jobrunner.Commitment
	for cur.Next(ctx) {
		var doc struct {
			ID      string    `bson:"_id"`
			Title   string    `bson:"title"`
			Account string    `bson:"account"`
			DueAt   time.Time `bson:"due_at"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("domainsource: decode commitment: %w", err)
		}
		commitments = append(commitments, jobrunner.Commitment{ID: doc.ID, Title: doc.Title, Account: doc.Account, DueAt: doc.DueAt})
	}
	return commitments, cur.Err()
}
