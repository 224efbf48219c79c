// Package mongodb implements the store repository over a MongoDB collection.
// A store is a single document; its reviews and their replies are embedded
// arrays, so deleting the store cascades by containment.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clothingstore/catalog-service/internal/domain"
	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("catalog-service/mongodb-repository")

const storesCollection = "stores"

type storeRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

// NewStoreRepository builds the repository and ensures its indexes. Index
// creation failures are logged, not fatal; the queries still work without
// them.
func NewStoreRepository(db *mongo.Database, log *logger.Logger) domain.StoreRepository {
	repo := &storeRepository{
		collection: db.Collection(storesCollection),
		logger:     log.Named("MongoStoreRepository"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *storeRepository) ensureIndexes(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "company_name", Value: 1}, {Key: "location", Value: 1}}},
		{Keys: bson.D{{Key: "reviews.review_id", Value: 1}}},
		{Keys: bson.D{{Key: "average_rating", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		r.logger.Warn("Failed to create store indexes", zap.Error(err))
	}
}

// --- document mapping ---

type replyDocument struct {
	ReplyID   string     `bson:"reply_id"`
	User      string     `bson:"user"`
	Text      string     `bson:"text"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty"`
	IsAdmin   bool       `bson:"is_admin"`
}

type reviewDocument struct {
	ReviewID  string          `bson:"review_id"`
	User      string          `bson:"user"`
	Rating    float64         `bson:"rating"`
	Comment   string          `bson:"comment"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt *time.Time      `bson:"updated_at,omitempty"`
	Replies   []replyDocument `bson:"replies"`
}

type storeDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	CompanyName   string             `bson:"company_name"`
	Title         string             `bson:"title,omitempty"`
	Description   string             `bson:"description,omitempty"`
	Location      string             `bson:"location"`
	WorkType      string             `bson:"work_type,omitempty"`
	Branches      []string           `bson:"branches"`
	Owner         string             `bson:"owner"`
	Managers      []string           `bson:"managers"`
	Views         int64              `bson:"views"`
	AverageRating float64            `bson:"average_rating"`
	ReviewCount   int                `bson:"review_count"`
	Reviews       []reviewDocument   `bson:"reviews"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     *time.Time         `bson:"updated_at,omitempty"`
}

func toReplyDocument(r *domain.Reply) replyDocument {
	return replyDocument{
		ReplyID:   r.ReplyID,
		User:      r.User,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		IsAdmin:   r.IsAdmin,
	}
}

func toReviewDocument(rv *domain.Review) reviewDocument {
	replies := make([]replyDocument, 0, len(rv.Replies))
	for i := range rv.Replies {
		replies = append(replies, toReplyDocument(&rv.Replies[i]))
	}
	return reviewDocument{
		ReviewID:  rv.ReviewID,
		User:      rv.User,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
		UpdatedAt: rv.UpdatedAt,
		Replies:   replies,
	}
}

func (d *storeDocument) toDomain() *domain.Store {
	reviews := make([]domain.Review, 0, len(d.Reviews))
	for _, rv := range d.Reviews {
		replies := make([]domain.Reply, 0, len(rv.Replies))
		for _, rp := range rv.Replies {
			replies = append(replies, domain.Reply{
				ReplyID:   rp.ReplyID,
				User:      rp.User,
				Text:      rp.Text,
				CreatedAt: rp.CreatedAt,
				UpdatedAt: rp.UpdatedAt,
				IsAdmin:   rp.IsAdmin,
			})
		}
		reviews = append(reviews, domain.Review{
			ReviewID:  rv.ReviewID,
			User:      rv.User,
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			CreatedAt: rv.CreatedAt,
			UpdatedAt: rv.UpdatedAt,
			Replies:   replies,
		})
	}
	return &domain.Store{
		ID:            d.ID.Hex(),
		CompanyName:   d.CompanyName,
		Title:         d.Title,
		Description:   d.Description,
		Location:      d.Location,
		WorkType:      d.WorkType,
		Branches:      d.Branches,
		Owner:         d.Owner,
		Managers:      d.Managers,
		Views:         d.Views,
		AverageRating: d.AverageRating,
		ReviewCount:   d.ReviewCount,
		Reviews:       reviews,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// --- error mapping ---

func storeOID(storeID string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(storeID)
	if err != nil {
		// An unparseable id cannot address any document.
		return primitive.NilObjectID, fmt.Errorf("%w: store %s", domain.ErrNotFound, storeID)
	}
	return oid, nil
}

func mapFindErr(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

func mapWriteErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

// --- StoreRepository implementation ---

func (r *storeRepository) InsertStore(ctx context.Context, store *domain.Store) (string, error) {
	ctx, span := tracer.Start(ctx, "MongoDB.InsertStore")
	defer span.End()

	reviews := make([]reviewDocument, 0, len(store.Reviews))
	for i := range store.Reviews {
		reviews = append(reviews, toReviewDocument(&store.Reviews[i]))
	}
	doc := storeDocument{
		CompanyName:   store.CompanyName,
		Title:         store.Title,
		Description:   store.Description,
		Location:      store.Location,
		WorkType:      store.WorkType,
		Branches:      store.Branches,
		Owner:         store.Owner,
		Managers:      store.Managers,
		Views:         store.Views,
		AverageRating: store.AverageRating,
		ReviewCount:   store.ReviewCount,
		Reviews:       reviews,
		CreatedAt:     store.CreatedAt,
		UpdatedAt:     store.UpdatedAt,
	}

	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		span.RecordError(err)
		return "", mapWriteErr(err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("%w: unexpected inserted id type %T", domain.ErrStorageUnavailable, res.InsertedID)
	}
	return oid.Hex(), nil
}

func (r *storeRepository) GetStore(ctx context.Context, storeID string) (*domain.Store, error) {
	ctx, span := tracer.Start(ctx, "MongoDB.GetStore")
	defer span.End()

	oid, err := storeOID(storeID)
	if err != nil {
		return nil, err
	}

	var doc storeDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		span.RecordError(err)
		return nil, mapFindErr(err, "store "+storeID)
	}
	return doc.toDomain(), nil
}

func (r *storeRepository) FindStoreByNameAndLocation(ctx context.Context, companyName, location string) (*domain.Store, error) {
	var doc storeDocument
	err := r.collection.FindOne(ctx, bson.M{"company_name": companyName, "location": location}).Decode(&doc)
	if err != nil {
		return nil, mapFindErr(err, fmt.Sprintf("store %q at %q", companyName, location))
	}
	return doc.toDomain(), nil
}

func (r *storeRepository) ListStores(ctx context.Context, filter domain.StoreFilter) ([]*domain.Store, int64, error) {
	ctx, span := tracer.Start(ctx, "MongoDB.ListStores")
	defer span.End()

	var sort bson.D
	switch filter.Sort {
	case "rating":
		sort = bson.D{{Key: "average_rating", Value: -1}}
	case "oldest":
		sort = bson.D{{Key: "created_at", Value: 1}}
	case "nameAsc":
		sort = bson.D{{Key: "company_name", Value: 1}}
	case "nameDesc":
		sort = bson.D{{Key: "company_name", Value: -1}}
	default:
		sort = bson.D{{Key: "created_at", Value: -1}}
	}

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		span.RecordError(err)
		return nil, 0, mapWriteErr(err)
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		span.RecordError(err)
		return nil, 0, mapWriteErr(err)
	}
	defer cursor.Close(ctx)

	var stores []*domain.Store
	for cursor.Next(ctx) {
		var doc storeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, mapWriteErr(err)
		}
		stores = append(stores, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, mapWriteErr(err)
	}
	return stores, total, nil
}

func (r *storeRepository) UpdateStoreFields(ctx context.Context, storeID string, fields map[string]interface{}) error {
	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: store %s", domain.ErrNotFound, storeID)
	}
	return nil
}

func (r *storeRepository) DeleteStore(ctx context.Context, storeID string) error {
	ctx, span := tracer.Start(ctx, "MongoDB.DeleteStore")
	defer span.End()

	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		span.RecordError(err)
		return mapWriteErr(err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: store %s", domain.ErrNotFound, storeID)
	}
	return nil
}

func (r *storeRepository) AddBranch(ctx context.Context, storeID, branchID string) error {
	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"branches": branchID}},
	)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: store %s", domain.ErrNotFound, storeID)
	}
	return nil
}

func (r *storeRepository) RemoveBranch(ctx context.Context, storeID, branchID string) error {
	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "branches": branchID},
		bson.M{"$pull": bson.M{"branches": branchID}},
	)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: branch %s on store %s", domain.ErrNotFound, branchID, storeID)
	}
	return nil
}

func (r *storeRepository) IncrementViews(ctx context.Context, storeID string) error {
	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: store %s", domain.ErrNotFound, storeID)
	}
	return nil
}

// AppendReviewIfAbsent pushes the review with the author-uniqueness check in
// the write's own filter. Two concurrent calls for the same author cannot
// both match, so the loser observes MatchedCount 0 and a follow-up read
// tells store-missing apart from already-reviewed.
func (r *storeRepository) AppendReviewIfAbsent(ctx context.Context, storeID string, review *domain.Review) error {
	ctx, span := tracer.Start(ctx, "MongoDB.AppendReviewIfAbsent")
	defer span.End()

	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews.user": bson.M{"$ne": review.User}},
		bson.M{"$push": bson.M{"reviews": toReviewDocument(review)}},
	)
	if err != nil {
		span.RecordError(err)
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Err(); err != nil {
			return mapFindErr(err, "store "+storeID)
		}
		return fmt.Errorf("%w: user %s on store %s", domain.ErrAlreadyReviewed, review.User, storeID)
	}
	return nil
}

func (r *storeRepository) UpdateReviewFields(ctx context.Context, storeID, reviewID string, patch domain.ReviewPatch) error {
	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	set := bson.M{"reviews.$.updated_at": patch.UpdatedAt}
	if patch.Comment != nil {
		set["reviews.$.comment"] = *patch.Comment
	}
	if patch.Rating != nil {
		set["reviews.$.rating"] = *patch.Rating
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews.review_id": reviewID},
		bson.M{"$set": set},
	)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: review %s on store %s", domain.ErrNotFound, reviewID, storeID)
	}
	return nil
}

func (r *storeRepository) RemoveReview(ctx context.Context, storeID, reviewID string) error {
	ctx, span := tracer.Start(ctx, "MongoDB.RemoveReview")
	defer span.End()

	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews.review_id": reviewID},
		bson.M{"$pull": bson.M{"reviews": bson.M{"review_id": reviewID}}},
	)
	if err != nil {
		span.RecordError(err)
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: review %s on store %s", domain.ErrNotFound, reviewID, storeID)
	}
	return nil
}

func (r *storeRepository) AppendReply(ctx context.Context, storeID, reviewID string, reply *domain.Reply) error {
	ctx, span := tracer.Start(ctx, "MongoDB.AppendReply")
	defer span.End()

	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "reviews.review_id": reviewID},
		bson.M{"$push": bson.M{"reviews.$.replies": toReplyDocument(reply)}},
	)
	if err != nil {
		span.RecordError(err)
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: review %s on store %s", domain.ErrNotFound, reviewID, storeID)
	}
	return nil
}

func (r *storeRepository) UpdateReplyText(ctx context.Context, storeID, reviewID, replyID, text string, updatedAt time.Time) error {
	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id": oid,
		"reviews": bson.M{"$elemMatch": bson.M{
			"review_id":        reviewID,
			"replies.reply_id": replyID,
		}},
	}
	update := bson.M{"$set": bson.M{
		"reviews.$[r].replies.$[p].text":       text,
		"reviews.$[r].replies.$[p].updated_at": updatedAt,
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"r.review_id": reviewID},
			bson.M{"p.reply_id": replyID},
		},
	})

	res, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: reply %s on review %s", domain.ErrNotFound, replyID, reviewID)
	}
	return nil
}

func (r *storeRepository) RemoveReply(ctx context.Context, storeID, reviewID, replyID string) error {
	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id": oid,
		"reviews": bson.M{"$elemMatch": bson.M{
			"review_id":        reviewID,
			"replies.reply_id": replyID,
		}},
	}
	update := bson.M{"$pull": bson.M{"reviews.$.replies": bson.M{"reply_id": replyID}}}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: reply %s on review %s", domain.ErrNotFound, replyID, reviewID)
	}
	return nil
}

func (r *storeRepository) SetRatingAggregate(ctx context.Context, storeID string, average float64, count int) error {
	oid, err := storeOID(storeID)
	if err != nil {
		return err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"average_rating": average, "review_count": count}},
	)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: store %s", domain.ErrNotFound, storeID)
	}
	return nil
}
