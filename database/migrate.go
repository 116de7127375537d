package database

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"campusparking/logger"
	"campusparking/models"
)

var channelName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const notifyFunctionSQL = `
CREATE OR REPLACE FUNCTION notify_parkinglots_change() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('%s', json_build_object(
		'table', TG_TABLE_NAME,
		'type', TG_OP,
		'new', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
		'old', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END,
		'commit_time', now()
	)::text);
	RETURN COALESCE(NEW, OLD);
END;
$$ LANGUAGE plpgsql`

const notifyTriggerSQL = `
CREATE TRIGGER parkinglots_notify
AFTER INSERT OR UPDATE OR DELETE ON parkinglots
FOR EACH ROW EXECUTE FUNCTION notify_parkinglots_change()`

// Migrate 建立資料表；postgres 時另外安裝 NOTIFY trigger 給 change feed 使用
func Migrate(ctx context.Context, db *gorm.DB, feedChannel string) error {
	log := logger.FromContext(ctx)

	if err := db.WithContext(ctx).AutoMigrate(
		&models.ParkingLot{},
		&models.StatusRequest{},
		&models.User{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	log.Info("Database migration completed")

	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if !channelName.MatchString(feedChannel) {
		return fmt.Errorf("invalid feed channel name %q", feedChannel)
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf(notifyFunctionSQL, feedChannel)).Error; err != nil {
			return err
		}
		if err := tx.Exec("DROP TRIGGER IF EXISTS parkinglots_notify ON parkinglots").Error; err != nil {
			return err
		}
		return tx.Exec(notifyTriggerSQL).Error
	})
	if err != nil {
		return fmt.Errorf("failed to install change trigger: %w", err)
	}
	log.Info("Change trigger installed", "channel", feedChannel)
	return nil
}
