// Package mongo hosts the MongoDB-backed implementation of the store
// interfaces.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store"
)

const (
	defaultUsageCollection  = "usage_records"
	defaultRetryCollection  = "retry_budgets"
	defaultNotificationColl = "notifications"
	defaultBriefingColl     = "briefing_queue"
	defaultLoginQueueColl   = "login_queue"
	defaultDedupColl        = "delivery_dedup"
	defaultConversationColl = "conversations"
	defaultJobRunColl       = "job_runs"
	defaultWorkflowColl     = "pending_workflows"
	defaultOpTimeout        = 5 * time.Second
	clientName              = "aria-core-mongo"
)

// Client implements every store interface against MongoDB collections.
type Client struct {
	mongo *mongodriver.Client

	usage         collection
	retries       collection
	notifications collection
	briefings     collection
	loginQueue    collection
	dedup         collection
	conversations collection
	jobRuns       collection
	workflows     collection

	timeout time.Duration
}

// Options configures the Mongo-backed Client.
type Options struct {
	Client   *mongodriver.Client
	Database string
	Timeout  time.Duration
}

// New returns a Client backed by MongoDB, creating the indexes each
// operation depends on.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	db := opts.Client.Database(opts.Database)
	c := &Client{
		mongo:         opts.Client,
		usage:         mongoCollection{db.Collection(defaultUsageCollection)},
		retries:       mongoCollection{db.Collection(defaultRetryCollection)},
		notifications: mongoCollection{db.Collection(defaultNotificationColl)},
		briefings:     mongoCollection{db.Collection(defaultBriefingColl)},
		loginQueue:    mongoCollection{db.Collection(defaultLoginQueueColl)},
		dedup:         mongoCollection{db.Collection(defaultDedupColl)},
		conversations: mongoCollection{db.Collection(defaultConversationColl)},
		jobRuns:       mongoCollection{db.Collection(defaultJobRunColl)},
		workflows:     mongoCollection{db.Collection(defaultWorkflowColl)},
		timeout:       timeout,
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Name implements health.Pinger.
func (c *Client) Name() string { return clientName }

// Ping implements health.Pinger.
func (c *Client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

var _ health.Pinger = (*Client)(nil)

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	if _, err := c.usage.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := c.retries.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "goal_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := c.notifications.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := c.briefings.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := c.loginQueue.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	}); err != nil {
		return err
	}
	if _, err := c.dedup.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := c.conversations.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := c.jobRuns.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "job_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	return nil
}

type usageDocument struct {
	UserID          string    `bson:"user_id"`
	Date            string    `bson:"date"`
	InputTokens     int64     `bson:"input_tokens"`
	OutputTokens    int64     `bson:"output_tokens"`
	ReasoningTokens int64     `bson:"reasoning_tokens"`
	CallCount       int64     `bson:"call_count"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func (d usageDocument) toRecord() core.UsageRecord {
	return core.UsageRecord{
		UserID:          d.UserID,
		Date:            d.Date,
		InputTokens:     d.InputTokens,
		OutputTokens:    d.OutputTokens,
		ReasoningTokens: d.ReasoningTokens,
		CallCount:       d.CallCount,
		UpdatedAt:       d.UpdatedAt,
	}
}

// IncrementUsage applies a $inc/upsert update, the same idempotent-upsert
// idiom goa-ai uses for session creation: a single atomic operation instead
// of a read-modify-write race.
func (c *Client) IncrementUsage(ctx context.Context, userID, date string, inputTokens, outputTokens, reasoningTokens int64) (core.UsageRecord, error) {
	if userID == "" || date == "" {
		return core.UsageRecord{}, errors.New("user id and date are required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	now := time.Now().UTC()
	filter := bson.M{"user_id": userID, "date": date}
	update := bson.M{
		"$inc": bson.M{
			"input_tokens":     inputTokens,
			"output_tokens":    outputTokens,
			"reasoning_tokens": reasoningTokens,
			"call_count":       int64(1),
		},
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"user_id": userID,
			"date":    date,
		},
	}
	if _, err := c.usage.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return core.UsageRecord{}, err
	}
	return c.LoadUsage(ctx, userID, date)
}

func (c *Client) LoadUsage(ctx context.Context, userID, date string) (core.UsageRecord, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc usageDocument
	if err := c.usage.FindOne(ctx, bson.M{"user_id": userID, "date": date}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return core.UsageRecord{}, store.ErrNotFound
		}
		return core.UsageRecord{}, err
	}
	return doc.toRecord(), nil
}

type retryDocument struct {
	GoalID string `bson:"goal_id"`
	Count  int    `bson:"count"`
}

func (c *Client) GetRetry(ctx context.Context, goalID string) (int, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc retryDocument
	err := c.retries.FindOne(ctx, bson.M{"goal_id": goalID}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Count, nil
}

func (c *Client) IncrementRetry(ctx context.Context, goalID string) (int, error) {
	if goalID == "" {
		return 0, errors.New("goal id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"goal_id": goalID}
	update := bson.M{"$inc": bson.M{"count": 1}, "$setOnInsert": bson.M{"goal_id": goalID}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc retryDocument
	if err := c.retries.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Count, nil
}

func (c *Client) ResetRetry(ctx context.Context, goalID string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.retries.DeleteOne(ctx, bson.M{"goal_id": goalID})
	return err
}

type notificationDocument struct {
	ID        string               `bson:"id"`
	UserID    string               `bson:"user_id"`
	Category  core.InsightCategory `bson:"category"`
	Type      string               `bson:"type"`
	Title     string               `bson:"title"`
	Message   string               `bson:"message"`
	Link      string               `bson:"link,omitempty"`
	CreatedAt time.Time            `bson:"created_at"`
	ReadAt    *time.Time           `bson:"read_at,omitempty"`
}

func (c *Client) SaveNotification(ctx context.Context, rec core.NotificationRecord) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.notifications.InsertOne(ctx, notificationDocument{
		ID: rec.ID, UserID: rec.UserID, Category: rec.Category, Type: rec.Type, Title: rec.Title,
		Message: rec.Message, Link: rec.Link, CreatedAt: rec.CreatedAt, ReadAt: rec.ReadAt,
	})
	return err
}

func (c *Client) ListNotifications(ctx context.Context, userID string, since time.Time) ([]core.NotificationRecord, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"user_id": userID, "created_at": bson.M{"$gte": since}}
	cur, err := c.notifications.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []core.NotificationRecord
	for cur.Next(ctx) {
		var doc notificationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, core.NotificationRecord{
			ID: doc.ID, UserID: doc.UserID, Category: doc.Category, Type: doc.Type, Title: doc.Title,
			Message: doc.Message, Link: doc.Link, CreatedAt: doc.CreatedAt, ReadAt: doc.ReadAt,
		})
	}
	return out, cur.Err()
}

type briefingDocument struct {
	ID         string               `bson:"id"`
	UserID     string               `bson:"user_id"`
	Category   core.InsightCategory `bson:"category"`
	Title      string               `bson:"title"`
	Message    string               `bson:"message"`
	Payload    map[string]any       `bson:"payload,omitempty"`
	CreatedAt  time.Time            `bson:"created_at"`
	ConsumedAt *time.Time           `bson:"consumed_at,omitempty"`
}

func (c *Client) EnqueueBriefing(ctx context.Context, row core.BriefingQueueRow) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.briefings.InsertOne(ctx, briefingDocument{
		ID: row.ID, UserID: row.UserID, Category: row.Category, Title: row.Title,
		Message: row.Message, Payload: row.Payload, CreatedAt: row.CreatedAt,
	})
	return err
}

func (c *Client) DrainBriefings(ctx context.Context, userID string) ([]core.BriefingQueueRow, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"user_id": userID, "consumed_at": bson.M{"$exists": false}}
	cur, err := c.briefings.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var out []core.BriefingQueueRow
	for cur.Next(ctx) {
		var doc briefingDocument
		if err := cur.Decode(&doc); err != nil {
			_ = cur.Close(ctx)
			return nil, err
		}
		out = append(out, core.BriefingQueueRow{
			ID: doc.ID, UserID: doc.UserID, Category: doc.Category, Title: doc.Title,
			Message: doc.Message, Payload: doc.Payload, CreatedAt: doc.CreatedAt, ConsumedAt: &now,
		})
	}
	if err := cur.Err(); err != nil {
		_ = cur.Close(ctx)
		return nil, err
	}
	_ = cur.Close(ctx)
	if len(out) == 0 {
		return out, nil
	}
	if _, err := c.briefings.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"consumed_at": now}}); err != nil {
		return nil, err
	}
	return out, nil
}

type loginQueueDocument struct {
	ID          string               `bson:"id"`
	UserID      string               `bson:"user_id"`
	Category    core.InsightCategory `bson:"category"`
	Title       string               `bson:"title"`
	Message     string               `bson:"message"`
	Link        string               `bson:"link,omitempty"`
	CreatedAt   time.Time            `bson:"created_at"`
	DeliveredAt *time.Time           `bson:"delivered_at,omitempty"`
}

func (c *Client) EnqueueLogin(ctx context.Context, row core.LoginQueueRow) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.loginQueue.InsertOne(ctx, loginQueueDocument{
		ID: row.ID, UserID: row.UserID, Category: row.Category, Title: row.Title,
		Message: row.Message, Link: row.Link, CreatedAt: row.CreatedAt,
	})
	return err
}

func (c *Client) DrainLogin(ctx context.Context, userID string) ([]core.LoginQueueRow, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"user_id": userID, "delivered_at": bson.M{"$exists": false}}
	cur, err := c.loginQueue.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var out []core.LoginQueueRow
	for cur.Next(ctx) {
		var doc loginQueueDocument
		if err := cur.Decode(&doc); err != nil {
			_ = cur.Close(ctx)
			return nil, err
		}
		out = append(out, core.LoginQueueRow{
			ID: doc.ID, UserID: doc.UserID, Category: doc.Category, Title: doc.Title,
			Message: doc.Message, Link: doc.Link, CreatedAt: doc.CreatedAt, DeliveredAt: &now,
		})
	}
	if err := cur.Err(); err != nil {
		_ = cur.Close(ctx)
		return nil, err
	}
	_ = cur.Close(ctx)
	if len(out) == 0 {
		return out, nil
	}
	if _, err := c.loginQueue.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"delivered_at": now}}); err != nil {
		return nil, err
	}
	return out, nil
}

type dedupDocument struct {
	Key    string    `bson:"key"`
	SeenAt time.Time `bson:"seen_at"`
}

func (c *Client) SeenRecently(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var existing dedupDocument
	err := c.dedup.FindOne(ctx, bson.M{"key": key}).Decode(&existing)
	switch {
	case err == nil:
		seen := now.Sub(existing.SeenAt) < window
		if !seen {
			_, err := c.dedup.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"seen_at": now}})
			if err != nil {
				return false, err
			}
		}
		return seen, nil
	case errors.Is(err, mongodriver.ErrNoDocuments):
		_, err := c.dedup.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$setOnInsert": bson.M{"key": key, "seen_at": now}}, options.UpdateOne().SetUpsert(true))
		return false, err
	default:
		return false, err
	}
}

type conversationDocument struct {
	ConversationID string     `bson:"conversation_id"`
	UserID         string     `bson:"user_id"`
	CreatedAt      time.Time  `bson:"created_at"`
	EndedAt        *time.Time `bson:"ended_at,omitempty"`
}

func (d conversationDocument) toConversation() core.Conversation {
	return core.Conversation{ID: d.ConversationID, UserID: d.UserID, CreatedAt: d.CreatedAt, EndedAt: d.EndedAt}
}

func (c *Client) CreateConversation(ctx context.Context, conversationID, userID string, createdAt time.Time) (core.Conversation, error) {
	if conversationID == "" {
		return core.Conversation{}, errors.New("conversation id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"conversation_id": conversationID}
	update := bson.M{"$setOnInsert": bson.M{
		"conversation_id": conversationID,
		"user_id":         userID,
		"created_at":      createdAt.UTC(),
	}}
	if _, err := c.conversations.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		return core.Conversation{}, err
	}
	return c.LoadConversation(ctx, conversationID)
}

func (c *Client) LoadConversation(ctx context.Context, conversationID string) (core.Conversation, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc conversationDocument
	if err := c.conversations.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return core.Conversation{}, store.ErrNotFound
		}
		return core.Conversation{}, err
	}
	return doc.toConversation(), nil
}

func (c *Client) EndConversation(ctx context.Context, conversationID string, endedAt time.Time) (core.Conversation, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	update := bson.M{"$set": bson.M{"ended_at": endedAt.UTC()}}
	if _, err := c.conversations.UpdateOne(ctx, bson.M{"conversation_id": conversationID}, update); err != nil {
		return core.Conversation{}, err
	}
	return c.LoadConversation(ctx, conversationID)
}

type jobRunDocument struct {
	JobName         string    `bson:"job_name"`
	StartedAt       time.Time `bson:"started_at"`
	FinishedAt      time.Time `bson:"finished_at"`
	UsersConsidered int       `bson:"users_considered"`
	UsersProcessed  int       `bson:"users_processed"`
	UsersSkipped    int       `bson:"users_skipped"`
	UsersFailed     int       `bson:"users_failed"`
	ErrorMessages   []string  `bson:"error_messages,omitempty"`
}

func (c *Client) SaveJobRun(ctx context.Context, summary core.JobRunSummary) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	msgs := make([]string, 0, len(summary.Errors))
	for _, e := range summary.Errors {
		msgs = append(msgs, e.Error())
	}
	doc := jobRunDocument{
		JobName: summary.JobName, StartedAt: summary.StartedAt, FinishedAt: summary.FinishedAt,
		UsersConsidered: summary.UsersConsidered, UsersProcessed: summary.UsersProcessed,
		UsersSkipped: summary.UsersSkipped, UsersFailed: summary.UsersFailed, ErrorMessages: msgs,
	}
	filter := bson.M{"job_name": summary.JobName}
	update := bson.M{"$set": doc}
	_, err := c.jobRuns.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (c *Client) LastRun(ctx context.Context, jobName string) (core.JobRunSummary, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc jobRunDocument
	if err := c.jobRuns.FindOne(ctx, bson.M{"job_name": jobName}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return core.JobRunSummary{}, store.ErrNotFound
		}
		return core.JobRunSummary{}, err
	}
	errs := make([]error, 0, len(doc.ErrorMessages))
	for _, m := range doc.ErrorMessages {
		errs = append(errs, errors.New(m))
	}
	return core.JobRunSummary{
		JobName: doc.JobName, StartedAt: doc.StartedAt, FinishedAt: doc.FinishedAt,
		UsersConsidered: doc.UsersConsidered, UsersProcessed: doc.UsersProcessed,
		UsersSkipped: doc.UsersSkipped, UsersFailed: doc.UsersFailed, Errors: errs,
	}, nil
}

type workflowDocument struct {
	ID           string    `bson:"_id"`
	WorkflowName string    `bson:"workflow_name"`
	GoalID       string    `bson:"goal_id"`
	GoalUserID   string    `bson:"goal_user_id"`
	GoalDesc     string    `bson:"goal_description"`
	GoalCreated  time.Time `bson:"goal_created_at"`
	NextStep     int       `bson:"next_step"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (c *Client) SavePendingWorkflow(ctx context.Context, state core.WorkflowState) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	doc := workflowDocument{
		ID: state.ID, WorkflowName: state.WorkflowName,
		GoalID: state.Goal.ID, GoalUserID: state.Goal.UserID,
		GoalDesc: state.Goal.Description, GoalCreated: state.Goal.CreatedAt,
		NextStep: state.NextStep, CreatedAt: state.CreatedAt, UpdatedAt: state.UpdatedAt,
	}
	filter := bson.M{"_id": state.ID}
	update := bson.M{"$set": doc}
	_, err := c.workflows.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (c *Client) LoadPendingWorkflow(ctx context.Context, id string) (core.WorkflowState, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc workflowDocument
	if err := c.workflows.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return core.WorkflowState{}, store.ErrNotFound
		}
		return core.WorkflowState{}, err
	}
	return core.WorkflowState{
		ID:           doc.ID,
		WorkflowName: doc.WorkflowName,
		Goal: core.Goal{
			ID: doc.GoalID, UserID: doc.GoalUserID,
			Description: doc.GoalDesc, CreatedAt: doc.GoalCreated,
		},
		NextStep:  doc.NextStep,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (c *Client) DeletePendingWorkflow(ctx context.Context, id string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.workflows.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// collection is the narrow surface of *mongo.Collection the store package
// exercises, kept as an interface so tests can substitute a fake without
// a live database.
type collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongodriver.SingleResult
	FindOneAndUpdate(ctx context.Context, filter, update any, opts ...options.Lister[options.FindOneAndUpdateOptions]) *mongodriver.SingleResult
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongodriver.Cursor, error)
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error)
	UpdateMany(ctx context.Context, filter, update any, opts ...options.Lister[options.UpdateManyOptions]) (*mongodriver.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongodriver.DeleteResult, error)
	Indexes() mongodriver.IndexView
}

type mongoCollection struct {
	*mongodriver.Collection
}
