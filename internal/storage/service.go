package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"grievance/backend/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type Service struct {
	DB *gorm.DB
}

var _ Storage = (*Service)(nil)

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Open connects to PostgreSQL with error translation enabled so unique
// violations surface as ErrDuplicate.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

// AutoMigrate creates or updates every table the store uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Officer{},
		&models.Complaint{},
		&models.ExtensionRequest{},
		&models.TimelineEvent{},
		&models.Note{},
		&models.Document{},
	)
}

func (s *Service) WithTx(ctx context.Context, fn func(tx Storage) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx})
	})
}

func (s *Service) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return translate(s.db(ctx).Create(c).Error)
}

func (s *Service) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.db(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Service) GetComplaintForUpdate(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Service) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	return translate(s.db(ctx).Save(c).Error)
}

func (s *Service) ListComplaintIDsByOfficer(ctx context.Context, officerID string) ([]string, error) {
	var ids []string
	err := s.db(ctx).Model(&models.Complaint{}).
		Where("assigned_officer_id = ? AND is_officer_assigned = ?", officerID, true).
		Order("created_at asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func (s *Service) CreateOfficer(ctx context.Context, o *models.Officer) error {
	o.Email = normalizeEmail(o.Email)
	return translate(s.db(ctx).Create(o).Error)
}

func (s *Service) GetOfficerByID(ctx context.Context, id string) (*models.Officer, error) {
	var o models.Officer
	if err := s.db(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *Service) GetOfficerByEmail(ctx context.Context, email string) (*models.Officer, error) {
	var o models.Officer
	if err := s.db(ctx).Where("email = ?", normalizeEmail(email)).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *Service) GetOfficerByUserID(ctx context.Context, userID string) (*models.Officer, error) {
	var o models.Officer
	if err := s.db(ctx).Where("user_id = ?", userID).First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *Service) GetOfficerForUpdate(ctx context.Context, id string) (*models.Officer, error) {
	var o models.Officer
	err := s.db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&o).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *Service) UpdateOfficer(ctx context.Context, o *models.Officer) error {
	return translate(s.db(ctx).Save(o).Error)
}

func (s *Service) IncrementOfficerCounter(ctx context.Context, officerID string, counter OfficerCounter) error {
	if !counter.valid() {
		return fmt.Errorf("storage: unknown officer counter %q", counter)
	}
	col := string(counter)
	res := s.db(ctx).Model(&models.Officer{}).Where("id = ?", officerID).
		UpdateColumn(col, gorm.Expr(col+" + ?", 1))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	return translate(s.db(ctx).Create(u).Error)
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Service) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.db(ctx).Save(u).Error)
}

func (s *Service) ListUserIDsByRole(ctx context.Context, role models.Role) ([]string, error) {
	var ids []string
	if err := s.db(ctx).Model(&models.User{}).Where("role = ?", role).Order("created_at asc").Pluck("id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func (s *Service) ListTelegramLinkedUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db(ctx).Where("telegram_chat_id IS NOT NULL").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *Service) CreateExtensionRequest(ctx context.Context, r *models.ExtensionRequest) error {
	return translate(s.db(ctx).Create(r).Error)
}

func (s *Service) GetLatestPendingExtension(ctx context.Context, complaintID string) (*models.ExtensionRequest, error) {
	var r models.ExtensionRequest
	err := s.db(ctx).
		Where("complaint_id = ? AND status = ?", complaintID, models.ExtensionPending).
		Order("created_at desc").
		First(&r).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Service) UpdateExtensionRequest(ctx context.Context, r *models.ExtensionRequest) error {
	return translate(s.db(ctx).Save(r).Error)
}

func (s *Service) CreateTimelineEvent(ctx context.Context, e *models.TimelineEvent) error {
	return translate(s.db(ctx).Create(e).Error)
}

func (s *Service) FindTimelineEventByKey(ctx context.Context, complaintID, key string) (*models.TimelineEvent, error) {
	var e models.TimelineEvent
	err := s.db(ctx).Where("complaint_id = ? AND idempotency_key = ?", complaintID, key).First(&e).Error
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (s *Service) ListTimelineEvents(ctx context.Context, complaintID string) ([]models.TimelineEvent, error) {
	var events []models.TimelineEvent
	if err := s.db(ctx).Where("complaint_id = ?", complaintID).Order("at asc, id asc").Find(&events).Error; err != nil {
		return nil, translate(err)
	}
	return events, nil
}

func (s *Service) CreateNote(ctx context.Context, n *models.Note) error {
	return translate(s.db(ctx).Create(n).Error)
}

func (s *Service) ListNotes(ctx context.Context, complaintID string, kind models.AuthorKind) ([]models.Note, error) {
	var notes []models.Note
	err := s.db(ctx).Where("complaint_id = ? AND author_kind = ?", complaintID, kind).Order("created_at asc").Find(&notes).Error
	if err != nil {
		return nil, translate(err)
	}
	return notes, nil
}

func (s *Service) CreateDocument(ctx context.Context, d *models.Document) error {
	return translate(s.db(ctx).Create(d).Error)
}

func (s *Service) ListDocuments(ctx context.Context, complaintID string, kind models.AuthorKind) ([]models.Document, error) {
	var docs []models.Document
	err := s.db(ctx).Where("complaint_id = ? AND author_kind = ?", complaintID, kind).Order("created_at asc").Find(&docs).Error
	if err != nil {
		return nil, translate(err)
	}
	return docs, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
