package mongodb

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
	"go.uber.org/zap"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
	"github.com/NelsonWelser1/dairyledger/internal/ledger"
	"github.com/NelsonWelser1/dairyledger/internal/repository"
)

const (
	transactionsColl = "milk_transactions"
	transfersColl    = "milk_transfers"
	snapshotsColl    = "balance_snapshots"
)

// MongoDBRepository implements repository.Ledger on top of MongoDB.
// CommitWithdrawal runs inside a causally consistent session transaction that
// re-sums the source tank balance before inserting, so two sessions racing on
// the same tank cannot both overdraw it.
type MongoDBRepository struct {
	client          *mongo.Client
	dbName          string
	useTransactions bool
	logger          *zap.Logger
}

var _ repository.Ledger = (*MongoDBRepository)(nil)

// NewMongoDBRepository creates a new MongoDB repository. useTransactions
// should be false only against standalone servers without a replica set; the
// commit path then degrades to two sequential inserts and may report partial
// commit failures.
func NewMongoDBRepository(ctx context.Context, uri, dbName string, useTransactions bool, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:          client,
		dbName:          dbName,
		useTransactions: useTransactions,
		logger:          logger,
	}, nil
}

type transactionDoc struct {
	ID         primitive.ObjectID    `bson:"_id,omitempty"`
	Tank       string                `bson:"tank"`
	Quantity   primitive.Decimal128  `bson:"quantity"`
	Attributes models.MilkAttributes `bson:"attributes"`
	CreatedAt  time.Time             `bson:"created_at"`
}

type transferDoc struct {
	ID          primitive.ObjectID    `bson:"_id,omitempty"`
	SourceTank  string                `bson:"source_tank"`
	Destination string                `bson:"destination"`
	Quantity    primitive.Decimal128  `bson:"quantity"`
	Attributes  models.MilkAttributes `bson:"attributes"`
	CreatedAt   time.Time             `bson:"created_at"`
}

// ListTransactions returns the full ledger history ordered by creation time.
func (r *MongoDBRepository) ListTransactions(ctx context.Context) ([]models.TankTransaction, error) {
	coll := r.collection(transactionsColl)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeTransactions(ctx, cursor)
}

// LatestDeposit returns the newest positive entry for the tank, or nil when
// the tank has never received milk.
func (r *MongoDBRepository) LatestDeposit(ctx context.Context, tank string) (*models.TankTransaction, error) {
	coll := r.collection(transactionsColl)

	filter := bson.M{"tank": tank, "quantity": bson.M{"$gt": 0}}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var doc transactionDoc
	err := coll.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest deposit for %s: %w", tank, err)
	}

	txn, err := doc.toModel()
	if err != nil {
		return nil, err
	}

	return &txn, nil
}

// InsertTransaction appends a single ledger entry.
func (r *MongoDBRepository) InsertTransaction(ctx context.Context, txn models.TankTransaction) (string, error) {
	doc, err := toTransactionDoc(txn)
	if err != nil {
		return "", err
	}

	res, err := r.collection(transactionsColl).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	return objectIDHex(res.InsertedID), nil
}

// CommitWithdrawal performs the paired withdrawal writes. With transactions
// enabled both inserts and the balance re-check share one mongo transaction;
// otherwise the inserts run sequentially and a transfer failure after the
// ledger insert surfaces as *repository.PartialCommitError.
func (r *MongoDBRepository) CommitWithdrawal(ctx context.Context, txn models.TankTransaction, transfer models.TransferRecord) (string, error) {
	ledgerDoc, err := toTransactionDoc(txn)
	if err != nil {
		return "", err
	}

	recordDoc, err := toTransferDoc(transfer)
	if err != nil {
		return "", err
	}

	if !r.useTransactions {
		return r.commitSequential(ctx, ledgerDoc, recordDoc)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return "", fmt.Errorf("start mongo session: %w", err)
	}
	defer session.EndSession(ctx)

	id, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		balance, err := r.tankBalance(sc, txn.Tank)
		if err != nil {
			return nil, err
		}

		if balance.LessThan(txn.Quantity.Abs()) {
			return nil, repository.ErrInsufficientBalance
		}

		if _, err := r.collection(transactionsColl).InsertOne(sc, ledgerDoc); err != nil {
			return nil, fmt.Errorf("insert withdrawal entry: %w", err)
		}

		res, err := r.collection(transfersColl).InsertOne(sc, recordDoc)
		if err != nil {
			return nil, fmt.Errorf("insert transfer record: %w", err)
		}

		return objectIDHex(res.InsertedID), nil
	})
	if err != nil {
		return "", err
	}

	return id.(string), nil
}

// SaveSnapshot persists a reconciliation balance snapshot.
func (r *MongoDBRepository) SaveSnapshot(ctx context.Context, snapshot models.BalanceSnapshot) error {
	if _, err := r.collection(snapshotsColl).InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("insert balance snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) commitSequential(ctx context.Context, ledgerDoc transactionDoc, recordDoc transferDoc) (string, error) {
	if _, err := r.collection(transactionsColl).InsertOne(ctx, ledgerDoc); err != nil {
		return "", fmt.Errorf("insert withdrawal entry: %w", err)
	}

	res, err := r.collection(transfersColl).InsertOne(ctx, recordDoc)
	if err != nil {
		r.logger.Error("transfer record not written after ledger entry, manual reconciliation required",
			zap.Error(err))
		return "", &repository.PartialCommitError{Cause: err}
	}

	return objectIDHex(res.InsertedID), nil
}

// tankBalance re-sums the tank's entries through the session context so the
// read belongs to the surrounding transaction.
func (r *MongoDBRepository) tankBalance(sc mongo.SessionContext, tank string) (decimal.Decimal, error) {
	cursor, err := r.collection(transactionsColl).Find(sc, bson.M{"tank": tank})
	if err != nil {
		return decimal.Zero, fmt.Errorf("find tank entries for %s: %w", tank, err)
	}
	defer cursor.Close(sc)

	entries, err := decodeTransactions(sc, cursor)
	if err != nil {
		return decimal.Zero, err
	}

	return ledger.Balance(entries, tank), nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

func decodeTransactions(ctx context.Context, cursor *mongo.Cursor) ([]models.TankTransaction, error) {
	var txns []models.TankTransaction

	for cursor.Next(ctx) {
		var doc transactionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}

		txn, err := doc.toModel()
		if err != nil {
			return nil, err
		}

		txns = append(txns, txn)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return txns, nil
}

func toTransactionDoc(txn models.TankTransaction) (transactionDoc, error) {
	quantity, err := primitive.ParseDecimal128(txn.Quantity.String())
	if err != nil {
		return transactionDoc{}, fmt.Errorf("encode quantity %s: %w", txn.Quantity, err)
	}

	return transactionDoc{
		Tank:       txn.Tank,
		Quantity:   quantity,
		Attributes: txn.Attributes,
		CreatedAt:  txn.CreatedAt,
	}, nil
}

func toTransferDoc(transfer models.TransferRecord) (transferDoc, error) {
	quantity, err := primitive.ParseDecimal128(transfer.Quantity.String())
	if err != nil {
		return transferDoc{}, fmt.Errorf("encode quantity %s: %w", transfer.Quantity, err)
	}

	return transferDoc{
		SourceTank:  transfer.SourceTank,
		Destination: transfer.Destination,
		Quantity:    quantity,
		Attributes:  transfer.Attributes,
		CreatedAt:   transfer.CreatedAt,
	}, nil
}

func (d transactionDoc) toModel() (models.TankTransaction, error) {
	quantity, err := decimal.NewFromString(d.Quantity.String())
	if err != nil {
		return models.TankTransaction{}, fmt.Errorf("decode quantity %s: %w", d.Quantity, err)
	}

	return models.TankTransaction{
		ID:         d.ID.Hex(),
		Tank:       d.Tank,
		Quantity:   quantity,
		Attributes: d.Attributes,
		CreatedAt:  d.CreatedAt,
	}, nil
}

func objectIDHex(inserted interface{}) string {
	if oid, ok := inserted.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(inserted)
}
