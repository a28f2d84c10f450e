package deviceRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trustlink/database"
	"trustlink/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionConflict is returned when an optimistic update loses a race
// against a concurrent writer. Callers may retry with a fresh read.
var ErrVersionConflict = errors.New("device was modified concurrently")

// MongoDeviceRepo implements DeviceRepository using MongoDB.
type MongoDeviceRepo struct {
	coll *mongo.Collection
}

// NewMongoDeviceRepo creates a new instance of DeviceRepository using MongoDB.
func NewMongoDeviceRepo() DeviceRepository {
	coll := database.MongoClient.Database("trustlink").Collection("devices")
	repo := &MongoDeviceRepo{coll: coll}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoDeviceRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "device_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner_user_id", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// GetByID retrieves a device by its unique ID. Returns nil when absent.
func (r *MongoDeviceRepo) GetByID(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device
	if err := r.coll.FindOne(ctx, bson.M{"device_id": deviceID}).Decode(&device); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch device with id %s: %w", deviceID, err)
	}
	return &device, nil
}

// ListByOwner retrieves all devices bound to a user.
func (r *MongoDeviceRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]models.Device, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"owner_user_id": ownerUserID})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve devices: %w", err)
	}
	defer cursor.Close(ctx)

	var devices []models.Device
	for cursor.Next(ctx) {
		var d models.Device
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Create inserts a new device document.
func (r *MongoDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now
	device.Version = 1

	if _, err := r.coll.InsertOne(ctx, device); err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

// RotatePublicKey replaces the stored public key only if the version still
// matches; a lost race surfaces as ErrVersionConflict.
func (r *MongoDeviceRepo) RotatePublicKey(ctx context.Context, deviceID string, version int64, publicKeyPEM string) error {
	filter := bson.M{"device_id": deviceID, "version": version}
	update := bson.M{
		"$set": bson.M{
			"public_key_pem": publicKeyPEM,
			"updated_at":     time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to rotate public key for device %s: %w", deviceID, err)
	}
	if result.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

// SetRequiresPassword flips the password fallback kill switch.
func (r *MongoDeviceRepo) SetRequiresPassword(ctx context.Context, deviceID string, required bool) error {
	filter := bson.M{"device_id": deviceID}
	update := bson.M{
		"$set": bson.M{
			"requires_password": required,
			"updated_at":        time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update device %s: %w", deviceID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("device with id %s not found", deviceID)
	}
	return nil
}

// UpdateLastSignIn records a successful sign-in time.
func (r *MongoDeviceRepo) UpdateLastSignIn(ctx context.Context, deviceID string, at time.Time) error {
	filter := bson.M{"device_id": deviceID}
	update := bson.M{
		"$set": bson.M{
			"last_sign_in_at": at,
			"updated_at":      time.Now(),
		},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update last sign-in for device %s: %w", deviceID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("device with id %s not found", deviceID)
	}
	return nil
}

// Delete removes a device document by its ID.
func (r *MongoDeviceRepo) Delete(ctx context.Context, deviceID string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"device_id": deviceID})
	if err != nil {
		return fmt.Errorf("failed to delete device with id %s: %w", deviceID, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("device with id %s not found", deviceID)
	}
	return nil
}
