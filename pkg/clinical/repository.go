package clinical

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retinacare/platform/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type clinicModel struct {
	ID        uuid.UUID `gorm:"primaryKey;column:id"`
	Name      string    `gorm:"column:name"`
	Address   string    `gorm:"column:address"`
	Phone     string    `gorm:"column:phone"`
	Status    string    `gorm:"column:status"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (clinicModel) TableName() string { return "clinics" }

type patientModel struct {
	ID          uuid.UUID  `gorm:"primaryKey;column:id"`
	ClinicID    uuid.UUID  `gorm:"column:clinic_id;index"`
	AccountID   *uuid.UUID `gorm:"column:account_id"`
	FullName    string     `gorm:"column:full_name"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (patientModel) TableName() string { return "patients" }

type imageModel struct {
	ID         uuid.UUID `gorm:"primaryKey;column:id"`
	PatientID  uuid.UUID `gorm:"column:patient_id;index"`
	ImageType  string    `gorm:"column:image_type"`
	FileURL    string    `gorm:"column:file_url"`
	Status     string    `gorm:"column:status"`
	UploadedAt time.Time `gorm:"column:uploaded_at"`
}

func (imageModel) TableName() string { return "retinal_images" }

type accountModel struct {
	ID       uuid.UUID  `gorm:"primaryKey;column:id"`
	ClinicID *uuid.UUID `gorm:"column:clinic_id;index"`
	Role     string     `gorm:"column:role"`
	Email    string     `gorm:"column:email;uniqueIndex"`
	FullName string     `gorm:"column:full_name"`
}

func (accountModel) TableName() string { return "accounts" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&clinicModel{},
		&patientModel{},
		&imageModel{},
		&accountModel{},
	)
}

func (r *Repository) CreateClinic(ctx context.Context, name, address, phone string) (models.Clinic, error) {
	row := &clinicModel{
		ID:        uuid.New(),
		Name:      name,
		Address:   address,
		Phone:     phone,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Clinic{}, err
	}
	return toClinic(row), nil
}

func (r *Repository) GetClinic(ctx context.Context, id uuid.UUID) (models.Clinic, error) {
	var row clinicModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Clinic{}, ErrNotFound
	}
	if result.Error != nil {
		return models.Clinic{}, result.Error
	}
	return toClinic(&row), nil
}

func (r *Repository) CreatePatient(ctx context.Context, req models.CreatePatientRequest) (models.Patient, error) {
	row := &patientModel{
		ID:          uuid.New(),
		ClinicID:    req.ClinicID,
		FullName:    req.FullName,
		DateOfBirth: req.DateOfBirth,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Patient{}, err
	}
	return toPatient(row), nil
}

func (r *Repository) GetPatient(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	var row patientModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.Patient{}, ErrNotFound
	}
	if result.Error != nil {
		return models.Patient{}, result.Error
	}
	return toPatient(&row), nil
}

func (r *Repository) ListPatientsByClinic(ctx context.Context, clinicID uuid.UUID) ([]models.Patient, error) {
	var rows []patientModel
	if err := r.db.WithContext(ctx).
		Where("clinic_id = ?", clinicID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	patients := make([]models.Patient, 0, len(rows))
	for i := range rows {
		patients = append(patients, toPatient(&rows[i]))
	}
	return patients, nil
}

func (r *Repository) CreateImage(ctx context.Context, req models.CreateImageRequest) (models.RetinalImage, error) {
	row := &imageModel{
		ID:         uuid.New(),
		PatientID:  req.PatientID,
		ImageType:  req.ImageType,
		FileURL:    req.FileURL,
		Status:     "uploaded",
		UploadedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.RetinalImage{}, err
	}
	return toImage(row), nil
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (models.RetinalImage, error) {
	var row imageModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.RetinalImage{}, ErrNotFound
	}
	if result.Error != nil {
		return models.RetinalImage{}, result.Error
	}
	return toImage(&row), nil
}

func (r *Repository) ListImagesByPatient(ctx context.Context, patientID uuid.UUID) ([]models.RetinalImage, error) {
	var rows []imageModel
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("uploaded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	images := make([]models.RetinalImage, 0, len(rows))
	for i := range rows {
		images = append(images, toImage(&rows[i]))
	}
	return images, nil
}

func (r *Repository) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	row := &accountModel{
		ID:       uuid.New(),
		ClinicID: account.ClinicID,
		Role:     account.Role,
		Email:    account.Email,
		FullName: account.FullName,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Account{}, err
	}
	return toAccount(row), nil
}

// ListClinicStaff returns the clinic's doctor and clinic-manager
// accounts, the recipients of high-risk alerts.
func (r *Repository) ListClinicStaff(ctx context.Context, clinicID uuid.UUID) ([]models.Account, error) {
	var rows []accountModel
	if err := r.db.WithContext(ctx).
		Where("clinic_id = ? AND role IN ?", clinicID, []string{models.RoleDoctor, models.RoleClinicManager}).
		Order("email ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]models.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, toAccount(&rows[i]))
	}
	return accounts, nil
}

func toClinic(row *clinicModel) models.Clinic {
	return models.Clinic{
		ID:        row.ID,
		Name:      row.Name,
		Address:   row.Address,
		Phone:     row.Phone,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
	}
}

func toPatient(row *patientModel) models.Patient {
	return models.Patient{
		ID:          row.ID,
		ClinicID:    row.ClinicID,
		AccountID:   row.AccountID,
		FullName:    row.FullName,
		DateOfBirth: row.DateOfBirth,
		CreatedAt:   row.CreatedAt,
	}
}

func toImage(row *imageModel) models.RetinalImage {
	return models.RetinalImage{
		ID:         row.ID,
		PatientID:  row.PatientID,
		ImageType:  row.ImageType,
		FileURL:    row.FileURL,
		Status:     row.Status,
		UploadedAt: row.UploadedAt,
	}
}

func toAccount(row *accountModel) models.Account {
	return models.Account{
		ID:       row.ID,
		ClinicID: row.ClinicID,
		Role:     row.Role,
		Email:    row.Email,
		FullName: row.FullName,
	}
}
