package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/univfleet/vehicle-tracking/internal/errs"
	"github.com/univfleet/vehicle-tracking/internal/models"
)

type mongoUser struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Username      string             `bson:"username"`
	PasswordHash  string             `bson:"password_hash"`
	Role          models.Role        `bson:"role"`
	FirstName     string             `bson:"first_name"`
	LastName      string             `bson:"last_name"`
	LicenseNumber string             `bson:"license_number,omitempty"`
	IsActive      bool               `bson:"is_active"`
	LastLogin     *time.Time         `bson:"last_login,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func (d *mongoUser) toModel() *models.User {
	return &models.User{
		ID:            d.ID.Hex(),
		Username:      d.Username,
		PasswordHash:  d.PasswordHash,
		Role:          d.Role,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		LicenseNumber: d.LicenseNumber,
		IsActive:      d.IsActive,
		LastLogin:     d.LastLogin,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	doc := mongoUser{
		ID:            primitive.NewObjectID(),
		Username:      u.Username,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		LicenseNumber: u.LicenseNumber,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return nil, errs.NewInternal(err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.NewNotFound("user", id)
	}
	var doc mongoUser
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.NewNotFound("user", id)
		}
		return nil, errs.NewInternal(err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var doc mongoUser
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errs.NewNotFound("user", username)
		}
		return nil, errs.NewInternal(err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	count, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errs.NewInternal(err)
	}
	return count, nil
}
