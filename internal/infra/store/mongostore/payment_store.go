// Package mongostore persists payments in a MongoDB "payments" collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"

	"payment-bot/internal/domain/billing"
)

const collectionName = "payments"

type paymentDocument struct {
	ID             string               `bson:"_id"`
	UserID         string               `bson:"user_id"`
	OrderID        string               `bson:"order_id"`
	Amount         primitive.Decimal128 `bson:"amount"`
	Currency       string               `bson:"currency"`
	Status         string               `bson:"status"`
	PaymentLink    string               `bson:"payment_link,omitempty"`
	PaymentDetails bson.M               `bson:"payment_details,omitempty"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

type PaymentStore struct {
	coll *mongo.Collection
}

// Connect opens a client and returns it with the store on the given
// database. The caller disconnects the client on shutdown.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *PaymentStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, NewPaymentStore(client.Database(database)), nil
}

func NewPaymentStore(db *mongo.Database) *PaymentStore {
	return &PaymentStore{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique order_id index and the history index.
func (s *PaymentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("order_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_id_created_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("create payment indexes: %w", err)
	}
	return nil
}

func (s *PaymentStore) Create(ctx context.Context, p *billing.Payment) error {
	doc, err := toDocument(p)
	if err != nil {
		return err
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert payment %s: %w", p.OrderID, billing.ErrDuplicateOrder)
		}
		return fmt.Errorf("insert payment %s: %w", p.OrderID, err)
	}
	return nil
}

func (s *PaymentStore) FindByOrderID(ctx context.Context, orderID string) (*billing.Payment, error) {
	var doc paymentDocument
	err := s.coll.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, billing.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", orderID, err)
	}
	return fromDocument(doc)
}

// Transition matches on both order_id and the expected status so only one
// concurrent caller can modify the document.
func (s *PaymentStore) Transition(ctx context.Context, orderID string, from, to billing.Status, details map[string]any, at time.Time) (bool, error) {
	if err := billing.CheckTransition(from, to); err != nil {
		return false, err
	}

	set := bson.M{
		"status":     string(to),
		"updated_at": at,
	}
	if details != nil {
		set["payment_details"] = details
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"order_id": orderID, "status": string(from)},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("transition payment %s: %w", orderID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *PaymentStore) ListRecent(ctx context.Context, userID string, limit int) ([]billing.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list payments for %s: %w", userID, err)
	}
	defer cur.Close(ctx)

	var docs []paymentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode payments for %s: %w", userID, err)
	}

	list := make([]billing.Payment, 0, len(docs))
	for _, d := range docs {
		p, err := fromDocument(d)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, nil
}

func toDocument(p *billing.Payment) (paymentDocument, error) {
	amount, err := primitive.ParseDecimal128(p.Amount.String())
	if err != nil {
		return paymentDocument{}, fmt.Errorf("encode amount %s: %w", p.Amount, err)
	}
	return paymentDocument{
		ID:             p.ID,
		UserID:         p.UserID,
		OrderID:        p.OrderID,
		Amount:         amount,
		Currency:       p.Currency,
		Status:         string(p.Status),
		PaymentLink:    p.PaymentLink,
		PaymentDetails: bson.M(p.PaymentDetails),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}, nil
}

func fromDocument(d paymentDocument) (*billing.Payment, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("decode amount for %s: %w", d.OrderID, err)
	}
	return &billing.Payment{
		ID:             d.ID,
		UserID:         d.UserID,
		OrderID:        d.OrderID,
		Amount:         amount,
		Currency:       d.Currency,
		Status:         billing.Status(d.Status),
		PaymentLink:    d.PaymentLink,
		PaymentDetails: datatypes.JSONMap(d.PaymentDetails),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

var _ billing.Store = (*PaymentStore)(nil)
