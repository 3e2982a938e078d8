package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"argus/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB holds a MongoDB client and database handle for rule persistence.
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB connects to MongoDB and returns a handle to the given database.
func NewMongoDB(ctx context.Context, uri, database string) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &MongoDB{
		Client:   client,
		Database: client.Database(database),
	}, nil
}

// Close disconnects the MongoDB client.
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// RuleCursor interface for mocking
type RuleCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
	Err() error
}

// RuleSingleResult interface for mocking
type RuleSingleResult interface {
	Decode(v interface{}) error
}

// RuleCollection interface for mocking
type RuleCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (RuleCursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) RuleSingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// mongoRuleCursor adapts *mongo.Cursor to RuleCursor
type mongoRuleCursor struct {
	*mongo.Cursor
}

func (m *mongoRuleCursor) All(ctx context.Context, results interface{}) error {
	return m.Cursor.All(ctx, results)
}

func (m *mongoRuleCursor) Close(ctx context.Context) error {
	return m.Cursor.Close(ctx)
}

func (m *mongoRuleCursor) Err() error {
	return m.Cursor.Err()
}

// mongoRuleSingleResult adapts *mongo.SingleResult to RuleSingleResult
type mongoRuleSingleResult struct {
	*mongo.SingleResult
}

func (m *mongoRuleSingleResult) Decode(v interface{}) error {
	return m.SingleResult.Decode(v)
}

// mongoRuleCollection adapts *mongo.Collection to RuleCollection
type mongoRuleCollection struct {
	*mongo.Collection
}

func (m *mongoRuleCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (RuleCursor, error) {
	cursor, err := m.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoRuleCursor{Cursor: cursor}, nil
}

func (m *mongoRuleCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) RuleSingleResult {
	return &mongoRuleSingleResult{SingleResult: m.Collection.FindOne(ctx, filter, opts...)}
}

// ruleDocument is the BSON shape rules are stored in. Conditions and actions
// are JSON-encoded strings: the condition value union carries its own JSON
// codec, and round-tripping through it avoids a custom BSON codec.
type ruleDocument struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	Description     string    `bson:"description,omitempty"`
	Enabled         bool      `bson:"enabled"`
	Priority        int       `bson:"priority"`
	Conditions      string    `bson:"conditions"`
	Actions         string    `bson:"actions"`
	Author          string    `bson:"author,omitempty"`
	Tags            []string  `bson:"tags,omitempty"`
	MitreTactics    []string  `bson:"mitre_tactics,omitempty"`
	MitreTechniques []string  `bson:"mitre_techniques,omitempty"`
	References      []string  `bson:"rule_references,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

// toRuleDocument converts a DetectionRule to its stored form.
func toRuleDocument(rule *core.DetectionRule) (*ruleDocument, error) {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actions: %w", err)
	}
	return &ruleDocument{
		ID:              rule.ID,
		Name:            rule.Name,
		Description:     rule.Description,
		Enabled:         rule.Enabled,
		Priority:        rule.Priority,
		Conditions:      string(conditions),
		Actions:         string(actions),
		Author:          rule.Author,
		Tags:            rule.Tags,
		MitreTactics:    rule.MitreTactics,
		MitreTechniques: rule.MitreTechniques,
		References:      rule.References,
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}, nil
}

// toDetectionRule converts a stored document back to a DetectionRule.
func (doc *ruleDocument) toDetectionRule() (*core.DetectionRule, error) {
	rule := &core.DetectionRule{
		ID:              doc.ID,
		Name:            doc.Name,
		Description:     doc.Description,
		Enabled:         doc.Enabled,
		Priority:        doc.Priority,
		Author:          doc.Author,
		Tags:            doc.Tags,
		MitreTactics:    doc.MitreTactics,
		MitreTechniques: doc.MitreTechniques,
		References:      doc.References,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	if doc.Conditions != "" {
		if err := json.Unmarshal([]byte(doc.Conditions), &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions for rule %s: %w", doc.ID, err)
		}
	}
	if doc.Actions != "" {
		if err := json.Unmarshal([]byte(doc.Actions), &rule.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions for rule %s: %w", doc.ID, err)
		}
	}
	return rule, nil
}

// MongoRuleStorage handles rule persistence and retrieval in MongoDB.
type MongoRuleStorage struct {
	rulesColl RuleCollection
}

// NewMongoRuleStorage creates a new rule storage handler over the "rules"
// collection.
func NewMongoRuleStorage(mongoDB *MongoDB) *MongoRuleStorage {
	return &MongoRuleStorage{
		rulesColl: &mongoRuleCollection{Collection: mongoDB.Database.Collection("rules")},
	}
}

// NewMongoRuleStorageWithCollection creates a rule storage over an arbitrary
// collection implementation. Used by tests to inject mocks.
func NewMongoRuleStorageWithCollection(coll RuleCollection) *MongoRuleStorage {
	return &MongoRuleStorage{rulesColl: coll}
}

// GetRules retrieves all rules from the database.
func (rs *MongoRuleStorage) GetRules() ([]core.DetectionRule, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := rs.rulesColl.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to find rules: %w", err)
	}
	defer cursor.Close(ctx)

	docs := make([]ruleDocument, 0)
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}

	rules := make([]core.DetectionRule, 0, len(docs))
	for i := range docs {
		rule, err := docs[i].toDetectionRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

// GetRule retrieves a single rule by ID.
func (rs *MongoRuleStorage) GetRule(id string) (*core.DetectionRule, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var doc ruleDocument
	err := rs.rulesColl.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to find rule: %w", err)
	}
	return doc.toDetectionRule()
}

// CreateRule inserts a new rule, failing with ErrDuplicateRule if the ID is
// already in use.
func (rs *MongoRuleStorage) CreateRule(rule *core.DetectionRule) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	existing, err := rs.GetRule(rule.ID)
	if err != nil && !errors.Is(err, ErrRuleNotFound) {
		return fmt.Errorf("failed to check existing rule: %w", err)
	}
	if existing != nil {
		return ErrDuplicateRule
	}

	doc, err := toRuleDocument(rule)
	if err != nil {
		return err
	}
	if _, err = rs.rulesColl.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateRule
		}
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

// UpdateRule replaces an existing rule wholesale.
func (rs *MongoRuleStorage) UpdateRule(id string, rule *core.DetectionRule) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc, err := toRuleDocument(rule)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": id}
	// _id is immutable in MongoDB, so it stays out of the $set document.
	update := bson.M{"$set": bson.M{
		"name":             doc.Name,
		"description":      doc.Description,
		"enabled":          doc.Enabled,
		"priority":         doc.Priority,
		"conditions":       doc.Conditions,
		"actions":          doc.Actions,
		"author":           doc.Author,
		"tags":             doc.Tags,
		"mitre_tactics":    doc.MitreTactics,
		"mitre_techniques": doc.MitreTechniques,
		"rule_references":  doc.References,
		"updated_at":       time.Now().UTC(),
	}}

	result, err := rs.rulesColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// DeleteRule deletes a rule by ID.
func (rs *MongoRuleStorage) DeleteRule(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := rs.rulesColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrRuleNotFound
	}
	return nil
}
