package rooms

import (
	"context"
	"errors"
	"time"

	postgres "Majiang/models/postgres"

	"gorm.io/gorm"
)

// storeTimeout bounds every PostgreSQL round trip so a slow database surfaces
// as a retryable Unavailable error instead of starving the per-room lock.
const storeTimeout = 3 * time.Second

// GormStore is the PostgreSQL-backed RoomStore.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

// storeErr maps gorm/driver errors to the room error taxonomy.
func storeErr(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return E(KindNotFound, notFoundMsg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Wrap(KindUnavailable, "storage timeout", err)
	default:
		return Wrap(KindUnavailable, "storage error", err)
	}
}

func (s *GormStore) GetByNumber(ctx context.Context, roomNumber string) (*postgres.Room, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var room postgres.Room
	err := s.db.WithContext(ctx).
		Preload("Seats").
		Preload("GameConfig").
		Where("room_number = ?", roomNumber).
		First(&room).Error
	if err != nil {
		return nil, storeErr(err, "room not found")
	}
	return &room, nil
}

func (s *GormStore) NumberTaken(ctx context.Context, roomNumber string) (bool, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var count int64
	err := s.db.WithContext(ctx).Model(&postgres.Room{}).
		Where("room_number = ?", roomNumber).
		Count(&count).Error
	if err != nil {
		return false, storeErr(err, "room not found")
	}
	return count > 0, nil
}

func (s *GormStore) Create(ctx context.Context, room *postgres.Room) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	// gorm persists the associated seats within the same transaction
	return storeErr(s.db.WithContext(ctx).Create(room).Error, "room not found")
}

func (s *GormStore) SaveRoom(ctx context.Context, room *postgres.Room) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Omit("Seats", "GameConfig").Save(room).Error
	return storeErr(err, "room not found")
}

func (s *GormStore) SaveSeat(ctx context.Context, seat *postgres.Seat) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Omit("Room").Save(seat).Error
	return storeErr(err, "seat not found")
}

func (s *GormStore) SaveSeats(ctx context.Context, room *postgres.Room, seats []*postgres.Seat) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Seats", "GameConfig").Save(room).Error; err != nil {
			return err
		}
		for _, seat := range seats {
			if err := tx.Omit("Room").Save(seat).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return storeErr(err, "room not found")
}

func (s *GormStore) AddSeat(ctx context.Context, room *postgres.Room, seat *postgres.Seat) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Room").Create(seat).Error; err != nil {
			return err
		}
		return tx.Omit("Seats", "GameConfig").Save(room).Error
	})
	return storeErr(err, "room not found")
}

func (s *GormStore) RemoveSeat(ctx context.Context, room *postgres.Room, seat *postgres.Seat) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("room_id = ? AND player_id = ?", seat.RoomID, seat.PlayerID).
			Delete(&postgres.Seat{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Omit("Seats", "GameConfig").Save(room).Error
	})
	return storeErr(err, "seat not found")
}

func (s *GormStore) Delete(ctx context.Context, room *postgres.Room) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", room.ID).Delete(&postgres.Seat{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.ID).Delete(&postgres.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(room).Error
	})
	return storeErr(err, "room not found")
}

func (s *GormStore) List(ctx context.Context, filter RoomFilter) ([]*postgres.Room, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	q := s.db.WithContext(ctx).Model(&postgres.Room{}).
		Preload("Seats").
		Preload("GameConfig").
		Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("room_status = ?", filter.Status)
	}
	if filter.PublicOnly {
		q = q.Where("password_hash = ''")
	}
	if filter.Size > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * filter.Size).Limit(filter.Size)
	}

	var roomList []*postgres.Room
	if err := q.Find(&roomList).Error; err != nil {
		return nil, storeErr(err, "room not found")
	}
	return roomList, nil
}

func (s *GormStore) ListExpired(ctx context.Context, now time.Time) ([]*postgres.Room, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var expired []*postgres.Room
	err := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Find(&expired).Error
	if err != nil {
		return nil, storeErr(err, "room not found")
	}
	return expired, nil
}

func (s *GormStore) FindByPlayer(ctx context.Context, playerID string) (*postgres.Room, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var seat postgres.Seat
	err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		First(&seat).Error
	if err != nil {
		return nil, storeErr(err, "player is not in any room")
	}

	var room postgres.Room
	err = s.db.WithContext(ctx).
		Preload("Seats").
		Preload("GameConfig").
		First(&room, seat.RoomID).Error
	if err != nil {
		return nil, storeErr(err, "room not found")
	}
	return &room, nil
}

func (s *GormStore) GetConfig(ctx context.Context, id uint) (*postgres.GameConfig, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var config postgres.GameConfig
	if err := s.db.WithContext(ctx).First(&config, id).Error; err != nil {
		return nil, storeErr(err, "game config not found")
	}
	return &config, nil
}

func (s *GormStore) DefaultConfig(ctx context.Context) (*postgres.GameConfig, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var config postgres.GameConfig
	err := s.db.WithContext(ctx).Where("is_default = ?", true).First(&config).Error
	if err != nil {
		return nil, storeErr(err, "default game config not found")
	}
	return &config, nil
}

func (s *GormStore) SaveChatMessage(ctx context.Context, msg *postgres.ChatMessage) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	return storeErr(s.db.WithContext(ctx).Omit("Room").Create(msg).Error, "room not found")
}
