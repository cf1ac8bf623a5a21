package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements Store on an embedded SQLite database via gorm.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path and runs
// migrations for all bridge models.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&Account{}, &Credential{}, &Device{}, &DeviceTrait{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AccountByLabel(ctx context.Context, label string) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("label = ?", label).First(&account).Error
	if err != nil {
		return nil, translateErr(err, "getting account by label")
	}
	return &account, nil
}

func (s *SQLiteStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		return nil, translateErr(err, "getting account by email")
	}
	return &account, nil
}

func (s *SQLiteStore) AccountByID(ctx context.Context, id uint) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		return nil, translateErr(err, "getting account")
	}
	return &account, nil
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, account *Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("creating account: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveAccount(ctx context.Context, account *Account) error {
	if err := s.db.WithContext(ctx).Save(account).Error; err != nil {
		return fmt.Errorf("saving account: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CredentialByAccount(ctx context.Context, accountID uint) (*Credential, error) {
	var cred Credential
	err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&cred).Error
	if err != nil {
		return nil, translateErr(err, "getting credential")
	}
	return &cred, nil
}

func (s *SQLiteStore) CredentialByAccessToken(ctx context.Context, token string) (*Credential, error) {
	var cred Credential
	err := s.db.WithContext(ctx).Where("access_token = ? AND access_token <> ''", token).First(&cred).Error
	if err != nil {
		return nil, translateErr(err, "getting credential by token")
	}
	return &cred, nil
}

// ReplaceCredential swaps the account's credential in one transaction so a
// concurrent exchange can never observe two live records.
func (s *SQLiteStore) ReplaceCredential(ctx context.Context, cred *Credential) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", cred.AccountID).Delete(&Credential{}).Error; err != nil {
			return err
		}
		return tx.Create(cred).Error
	})
	if err != nil {
		return fmt.Errorf("replacing credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveCredential(ctx context.Context, cred *Credential) error {
	if err := s.db.WithContext(ctx).Save(cred).Error; err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteCredential(ctx context.Context, accountID uint) error {
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&Credential{}).Error; err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DevicesByAccount(ctx context.Context, accountID uint) ([]Device, error) {
	var devices []Device
	err := s.db.WithContext(ctx).Preload("Traits").
		Where("account_id = ?", accountID).
		Order("id").
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devices, nil
}

func (s *SQLiteStore) DeviceByID(ctx context.Context, id uint) (*Device, error) {
	var device Device
	err := s.db.WithContext(ctx).Preload("Traits").First(&device, id).Error
	if err != nil {
		return nil, translateErr(err, "getting device")
	}
	return &device, nil
}

func (s *SQLiteStore) DeviceCount(ctx context.Context, accountID uint) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Device{}).Where("account_id = ?", accountID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting devices: %w", err)
	}
	return int(count), nil
}

func (s *SQLiteStore) CreateDevice(ctx context.Context, device *Device) error {
	if err := s.db.WithContext(ctx).Create(device).Error; err != nil {
		return fmt.Errorf("creating device: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteDevice(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", id).Delete(&DeviceTrait{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Device{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CheckHealth(ctx context.Context) error {
	db, err := s.db.WithContext(ctx).DB()
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func translateErr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
