package mongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// statusCompleted is the only transaction status that counts toward revenue.
const statusCompleted = "completed"

type ProductSales struct {
	ProductID     string  `bson:"_id"`
	Name          string  `bson:"name"`
	TotalQuantity int     `bson:"total_quantity"`
	TotalRevenue  float64 `bson:"total_revenue"`
	Orders        int     `bson:"orders"`
}

type CategoryRevenue struct {
	CategoryID   string  `bson:"_id"`
	Name         string  `bson:"name"`
	TotalRevenue float64 `bson:"total_revenue"`
	UnitsSold    int     `bson:"units_sold"`
}

type UserSegment struct {
	Segment    string  `bson:"segment"`
	Users      int     `bson:"users"`
	AvgSpent   float64 `bson:"avg_spent"`
	AvgOrders  float64 `bson:"avg_orders"`
	TotalSpent float64 `bson:"total_spent"`
}

// UserSpend is one user's completed-order footprint, the input to the
// lifetime-value report.
type UserSpend struct {
	UserID     string  `bson:"_id"`
	Orders     int     `bson:"orders"`
	TotalSpent float64 `bson:"total_spent"`
	FirstOrder string  `bson:"first_order"`
	LastOrder  string  `bson:"last_order"`
}

// TopSellingProductsPipeline ranks products by units sold across completed
// transactions and joins the product name in.
func TopSellingProductsPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: statusCompleted}}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$items.product_id"},
			{Key: "total_quantity", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}},
			{Key: "total_revenue", Value: bson.D{{Key: "$sum", Value: "$items.subtotal"}}},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_quantity", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: CollProducts},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "product_id"},
			{Key: "as", Value: "product"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "name", Value: bson.D{{Key: "$first", Value: "$product.name"}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "product", Value: 0}}}},
	}
}

// RevenueByCategoryPipeline folds completed line items through the product
// catalog into per-category revenue.
func RevenueByCategoryPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: statusCompleted}}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: CollProducts},
			{Key: "localField", Value: "items.product_id"},
			{Key: "foreignField", Value: "product_id"},
			{Key: "as", Value: "product"},
		}}},
		{{Key: "$unwind", Value: "$product"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$product.category_id"},
			{Key: "total_revenue", Value: bson.D{{Key: "$sum", Value: "$items.subtotal"}}},
			{Key: "units_sold", Value: bson.D{{Key: "$sum", Value: "$items.quantity"}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: CollCategories},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "category_id"},
			{Key: "as", Value: "category"},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "name", Value: bson.D{{Key: "$first", Value: "$category.name"}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "category", Value: 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_revenue", Value: -1}}}},
	}
}

// segmentBoundaries splits users by purchase count: 1, 2-5, 6-15, 16+.
var segmentBoundaries = bson.A{1, 2, 6, 16, 1000}

// UserSegmentsPipeline buckets users by purchase frequency across all their
// transactions: one purchase, 2-5, 6-15, 16 and up.
func UserSegmentsPipeline() mongo.Pipeline {
	label := bson.D{{Key: "$switch", Value: bson.D{
		{Key: "branches", Value: bson.A{
			bson.D{
				{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", 1}}}},
				{Key: "then", Value: "one-time"},
			},
			bson.D{
				{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", 2}}}},
				{Key: "then", Value: "occasional"},
			},
			bson.D{
				{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", 6}}}},
				{Key: "then", Value: "regular"},
			},
			bson.D{
				{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", 16}}}},
				{Key: "then", Value: "loyal"},
			},
		}},
		{Key: "default", Value: "other"},
	}}}

	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user_id"},
			{Key: "purchase_count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_spent", Value: bson.D{{Key: "$sum", Value: "$total"}}},
		}}},
		{{Key: "$bucket", Value: bson.D{
			{Key: "groupBy", Value: "$purchase_count"},
			{Key: "boundaries", Value: segmentBoundaries},
			{Key: "default", Value: "other"},
			{Key: "output", Value: bson.D{
				{Key: "users", Value: bson.D{{Key: "$sum", Value: 1}}},
				{Key: "avg_spent", Value: bson.D{{Key: "$avg", Value: "$total_spent"}}},
				{Key: "avg_orders", Value: bson.D{{Key: "$avg", Value: "$purchase_count"}}},
				{Key: "total_spent", Value: bson.D{{Key: "$sum", Value: "$total_spent"}}},
			}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "segment", Value: label},
			{Key: "users", Value: 1},
			{Key: "avg_spent", Value: 1},
			{Key: "avg_orders", Value: 1},
			{Key: "total_spent", Value: 1},
		}}},
	}
}

type MonthRevenue struct {
	Month   string  `bson:"_id"`
	Revenue float64 `bson:"revenue"`
	Orders  int     `bson:"orders"`
}

// MonthlyRevenuePipeline groups completed transactions by calendar month.
// Timestamps are strings in the raw files, so the month is a prefix slice,
// not a $dateTrunc.
func MonthlyRevenuePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: statusCompleted}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$substrBytes", Value: bson.A{"$timestamp", 0, 7}}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$total"}}},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// UserSpendPipeline computes per-user completed-order totals, highest
// spenders first.
func UserSpendPipeline(limit int) mongo.Pipeline {
	p := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "status", Value: statusCompleted}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user_id"},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_spent", Value: bson.D{{Key: "$sum", Value: "$total"}}},
			{Key: "first_order", Value: bson.D{{Key: "$min", Value: "$timestamp"}}},
			{Key: "last_order", Value: bson.D{{Key: "$max", Value: "$timestamp"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_spent", Value: -1}}}},
	}
	if limit > 0 {
		p = append(p, bson.D{{Key: "$limit", Value: limit}})
	}
	return p
}

func (s *Store) TopSellingProducts(ctx context.Context, limit int) ([]ProductSales, error) {
	return aggregate[ProductSales](ctx, s.db.Collection(CollTransactions), TopSellingProductsPipeline(limit))
}

func (s *Store) RevenueByCategory(ctx context.Context) ([]CategoryRevenue, error) {
	return aggregate[CategoryRevenue](ctx, s.db.Collection(CollTransactions), RevenueByCategoryPipeline())
}

func (s *Store) UserSegments(ctx context.Context) ([]UserSegment, error) {
	return aggregate[UserSegment](ctx, s.db.Collection(CollTransactions), UserSegmentsPipeline())
}

func (s *Store) MonthlyRevenue(ctx context.Context) ([]MonthRevenue, error) {
	return aggregate[MonthRevenue](ctx, s.db.Collection(CollTransactions), MonthlyRevenuePipeline())
}

func (s *Store) UserSpend(ctx context.Context, limit int) ([]UserSpend, error) {
	return aggregate[UserSpend](ctx, s.db.Collection(CollTransactions), UserSpendPipeline(limit))
}

func aggregate[R any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]R, error) {
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "running aggregation")
	}
	defer cur.Close(ctx)

	var out []R
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decoding aggregation results")
	}
	return out, nil
}
