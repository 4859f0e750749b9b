package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

// MongoStore is the document-oriented backend. Ids are ObjectID hex strings
// and the last-known position is embedded in the vehicle document.
//
// Known consistency gap: number uniqueness and assignment exclusivity are
// enforced by read, check, then write. Under concurrent creates of the same
// number, or concurrent assignment of the same driver, both writers can pass
// their check and both commit. The background audit reconciles this.
type MongoStore struct {
	client   *mongo.Client
	vehicles *mongo.Collection
	users    *mongo.Collection
}

// ConnectMongo connects to MongoDB and returns a store over the given
// database.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	db := client.Database(database)
	return &MongoStore{
		client:   client,
		vehicles: db.Collection("vehicles"),
		users:    db.Collection("users"),
	}, nil
}

// NewMongoStore wraps an existing database handle; used by integration tests.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:   client,
		vehicles: db.Collection("vehicles"),
		users:    db.Collection("users"),
	}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// mongoVehicle is the stored document shape; the ObjectID is converted to
// its hex form on the way out so callers only ever see opaque string ids.
type mongoVehicle struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty"`
	Number     string               `bson:"number"`
	Capacity   int                  `bson:"capacity"`
	Type       models.VehicleType   `bson:"type"`
	Status     models.VehicleStatus `bson:"status"`
	DriverID   *string              `bson:"driver_id,omitempty"`
	University string               `bson:"university,omitempty"`
	RouteName  string               `bson:"route_name,omitempty"`
	Position   *models.Position     `bson:"position,omitempty"`
	IsActive   bool                 `bson:"is_active"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

func (d *mongoVehicle) toModel() *models.Vehicle {
	return &models.Vehicle{
		ID:         d.ID.Hex(),
		Number:     d.Number,
		Capacity:   d.Capacity,
		Type:       d.Type,
		Status:     d.Status,
		DriverID:   d.DriverID,
		University: d.University,
		RouteName:  d.RouteName,
		Position:   d.Position,
		IsActive:   d.IsActive,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func vehicleObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, errs.NewNotFound("vehicle", id)
	}
	return oid, nil
}

// CreateVehicle inserts a new vehicle document. The existence check and the
// insert are separate operations; see the type comment for the race this
// leaves open.
func (s *MongoStore) CreateVehicle(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	exists, err := s.ExistsByNumber(ctx, v.Number)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.NewConflict("vehicle number already exists: %s", v.Number)
	}

	now := time.Now().UTC()
	doc := mongoVehicle{
		ID:         primitive.NewObjectID(),
		Number:     v.Number,
		Capacity:   v.Capacity,
		Type:       v.Type,
		Status:     v.Status,
		DriverID:   v.DriverID,
		University: v.University,
		RouteName:  v.RouteName,
		Position:   v.Position,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.vehicles.InsertOne(ctx, doc); err != nil {
		return nil, errs.NewInternal(err)
	}
	return doc.toModel(), nil
}

// UpdateVehicle replaces the descriptive fields of a vehicle document. The
// embedded position is owned by UpdateVehiclePosition and never written
// here, so a generic update carrying a stale read cannot clobber a location
// report that landed in between.
func (s *MongoStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	oid, err := vehicleObjectID(v.ID)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"number":     v.Number,
		"capacity":   v.Capacity,
		"type":       v.Type,
		"status":     v.Status,
		"driver_id":  v.DriverID,
		"university": v.University,
		"route_name": v.RouteName,
		"is_active":  v.IsActive,
		"updated_at": time.Now().UTC(),
	}}
	result, err := s.vehicles.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return errs.NewInternal(err)
	}
	if result.MatchedCount == 0 {
		return errs.NewNotFound("vehicle", v.ID)
	}
	return nil
}

func (s *MongoStore) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	oid, err := vehicleObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc mongoVehicle
	if err := s.vehicles.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.NewNotFound("vehicle", id)
		}
		return nil, errs.NewInternal(err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindVehicleByNumber(ctx context.Context, number string) (*models.Vehicle, error) {
	var doc mongoVehicle
	if err := s.vehicles.FindOne(ctx, bson.M{"number": number}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.NewNotFound("vehicle", number)
		}
		return nil, errs.NewInternal(err)
	}
	return doc.toModel(), nil
}

func filterToMongo(filter models.VehicleFilter) bson.M {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.University != "" {
		query["university"] = filter.University
	}
	if filter.ActiveOnly {
		query["is_active"] = true
	}
	if filter.WithPosition {
		query["position"] = bson.M{"$ne": nil}
	}
	return query
}

func (s *MongoStore) FindVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	cursor, err := s.vehicles.Find(ctx, filterToMongo(filter),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errs.NewInternal(err)
	}
	defer cursor.Close(ctx)

	var docs []mongoVehicle
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errs.NewInternal(err)
	}
	vehicles := make([]models.Vehicle, 0, len(docs))
	for i := range docs {
		vehicles = append(vehicles, *docs[i].toModel())
	}
	return vehicles, nil
}

func (s *MongoStore) SearchVehicles(ctx context.Context, query string) ([]models.Vehicle, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	mongoQuery := bson.M{
		"is_active": true,
		"$or": []bson.M{
			{"number": pattern},
			{"university": pattern},
			{"route_name": pattern},
		},
	}
	cursor, err := s.vehicles.Find(ctx, mongoQuery)
	if err != nil {
		return nil, errs.NewInternal(err)
	}
	defer cursor.Close(ctx)

	var docs []mongoVehicle
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errs.NewInternal(err)
	}
	vehicles := make([]models.Vehicle, 0, len(docs))
	for i := range docs {
		vehicles = append(vehicles, *docs[i].toModel())
	}
	return vehicles, nil
}

func (s *MongoStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	count, err := s.vehicles.CountDocuments(ctx, bson.M{"number": number})
	if err != nil {
		return false, errs.NewInternal(err)
	}
	return count > 0, nil
}

func (s *MongoStore) CountVehicles(ctx context.Context, filter models.VehicleFilter) (int64, error) {
	count, err := s.vehicles.CountDocuments(ctx, filterToMongo(filter))
	if err != nil {
		return 0, errs.NewInternal(err)
	}
	return count, nil
}

func (s *MongoStore) CountVehiclesByStatus(ctx context.Context) (map[models.VehicleStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.vehicles.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.NewInternal(err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.VehicleStatus `bson:"_id"`
		Count  int64                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errs.NewInternal(err)
	}
	counts := make(map[models.VehicleStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *MongoStore) FindVehicleByDriverID(ctx context.Context, driverID string) (*models.Vehicle, error) {
	var doc mongoVehicle
	err := s.vehicles.FindOne(ctx, bson.M{"driver_id": driverID, "is_active": true}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.NewNotFound("vehicle", "driver "+driverID)
		}
		return nil, errs.NewInternal(err)
	}
	return doc.toModel(), nil
}

// SetVehicleDriver binds a driver to a vehicle. The exclusivity check and
// the write are not atomic on this backend.
func (s *MongoStore) SetVehicleDriver(ctx context.Context, vehicleID, driverID string) error {
	oid, err := vehicleObjectID(vehicleID)
	if err != nil {
		return err
	}

	var existing mongoVehicle
	err = s.vehicles.FindOne(ctx, bson.M{"driver_id": driverID, "is_active": true}).Decode(&existing)
	if err == nil && existing.ID != oid {
		return errs.NewConflict("driver is already assigned to another vehicle: %s", existing.Number)
	}
	if err != nil && err != mongo.ErrNoDocuments {
		return errs.NewInternal(err)
	}

	result, err := s.vehicles.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"driver_id": driverID, "updated_at": time.Now().UTC()}})
	if err != nil {
		return errs.NewInternal(err)
	}
	if result.MatchedCount == 0 {
		return errs.NewNotFound("vehicle", vehicleID)
	}
	return nil
}

func (s *MongoStore) ClearVehicleDriver(ctx context.Context, vehicleID string) error {
	oid, err := vehicleObjectID(vehicleID)
	if err != nil {
		return err
	}
	result, err := s.vehicles.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{
			"$unset": bson.M{"driver_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return errs.NewInternal(err)
	}
	if result.MatchedCount == 0 {
		return errs.NewNotFound("vehicle", vehicleID)
	}
	return nil
}

func (s *MongoStore) UpdateVehiclePosition(ctx context.Context, vehicleID string, pos models.Position) (*models.Vehicle, error) {
	oid, err := vehicleObjectID(vehicleID)
	if err != nil {
		return nil, err
	}
	var doc mongoVehicle
	err = s.vehicles.FindOneAndUpdate(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"position": pos, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.NewNotFound("vehicle", vehicleID)
		}
		return nil, errs.NewInternal(err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) SoftDeleteVehicle(ctx context.Context, id string) error {
	oid, err := vehicleObjectID(id)
	if err != nil {
		return err
	}
	result, err := s.vehicles.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return errs.NewInternal(err)
	}
	if result.MatchedCount == 0 {
		return errs.NewNotFound("vehicle", id)
	}
	return nil
}
