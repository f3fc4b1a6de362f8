package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/pawkeep/internal/model"
)

type PetStore struct {
	db *sql.DB
}

func NewPetStore(db *sql.DB) *PetStore {
	return &PetStore{db: db}
}

func scanPet(scanner interface{ Scan(...any) error }) (*model.Pet, error) {
	var p model.Pet
	var familyID sql.NullInt64
	var birthDate sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.OwnerUserID, &familyID, &p.Name, &p.Species, &p.Breed,
		&birthDate, &p.PhotoRef, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if familyID.Valid {
		p.FamilyID = &familyID.Int64
	}
	if birthDate.Valid {
		p.BirthDate = &birthDate.Time
	}
	return &p, nil
}

const petCols = `id, owner_user_id, family_id, name, species, breed, birth_date, photo_ref, notes, created_at, updated_at`

func (s *PetStore) Create(ownerUserID int64, name, species, breed string, birthDate *time.Time, notes string) (*model.Pet, error) {
	var born sql.NullTime
	if birthDate != nil {
		born = sql.NullTime{Time: birthDate.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO pets (owner_user_id, name, species, breed, birth_date, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		ownerUserID, name, species, breed, born, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pet: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PetStore) GetByID(id int64) (*model.Pet, error) {
	row := s.db.QueryRow(`SELECT `+petCols+` FROM pets WHERE id = ?`, id)
	p, err := scanPet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pet: %w", err)
	}
	return p, nil
}

func (s *PetStore) Update(id int64, name, species, breed string, birthDate *time.Time, notes string) (*model.Pet, error) {
	var born sql.NullTime
	if birthDate != nil {
		born = sql.NullTime{Time: birthDate.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE pets SET name = ?, species = ?, breed = ?, birth_date = ?, notes = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, species, breed, born, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update pet: %w", err)
	}
	return s.GetByID(id)
}

func (s *PetStore) SetPhotoRef(id int64, photoRef string) error {
	_, err := s.db.Exec(
		`UPDATE pets SET photo_ref = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		photoRef, id,
	)
	if err != nil {
		return fmt.Errorf("set pet photo ref: %w", err)
	}
	return nil
}

// AssignFamily shares the pet with a family; a nil familyID makes it
// private to the owner again.
func (s *PetStore) AssignFamily(id int64, familyID *int64) (*model.Pet, error) {
	var fam sql.NullInt64
	if familyID != nil {
		fam = sql.NullInt64{Int64: *familyID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE pets SET family_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		fam, id,
	)
	if err != nil {
		return nil, fmt.Errorf("assign pet family: %w", err)
	}
	return s.GetByID(id)
}

func (s *PetStore) ListByOwner(ownerUserID int64) ([]model.Pet, error) {
	rows, err := s.db.Query(
		`SELECT `+petCols+` FROM pets WHERE owner_user_id = ? ORDER BY name ASC`,
		ownerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pets by owner: %w", err)
	}
	defer rows.Close()
	return scanPets(rows)
}

func (s *PetStore) ListByFamily(familyID int64) ([]model.Pet, error) {
	rows, err := s.db.Query(
		`SELECT `+petCols+` FROM pets WHERE family_id = ? ORDER BY name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pets by family: %w", err)
	}
	defer rows.Close()
	return scanPets(rows)
}

func (s *PetStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM pets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pet: %w", err)
	}
	return nil
}

func scanPets(rows *sql.Rows) ([]model.Pet, error) {
	var pets []model.Pet
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		pets = append(pets, *p)
	}
	return pets, rows.Err()
}
