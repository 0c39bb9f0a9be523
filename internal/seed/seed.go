// Package seed loads named development scenarios into an empty database.
package seed

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/apps/practice"
	"github.com/loopflow/cadenza/internal/apps/routines"
	"github.com/loopflow/cadenza/internal/config"
	"github.com/loopflow/cadenza/internal/database"
	"github.com/loopflow/cadenza/internal/models"
	"github.com/loopflow/cadenza/internal/storage"
	"gorm.io/gorm"
)

const (
	DevTeacherEmail = "teacher@example.com"
	ScenarioEmpty   = "empty"
	ScenarioTeacher = "teacher-with-students"
	ScenarioStudent = "student-with-assignment"
)

var DevStudentEmails = []string{"student1@example.com", "student2@example.com"}

var ErrUnknownScenario = errors.New("unknown scenario")

type scenario struct {
	description string
	load        func(s *Seeder) error
}

var scenarios = map[string]scenario{
	ScenarioEmpty: {
		description: "no data",
		load:        func(*Seeder) error { return nil },
	},
	ScenarioTeacher: {
		description: "a teacher with two students, three pieces and a two-exercise routine",
		load:        (*Seeder).teacherWithStudents,
	},
	ScenarioStudent: {
		description: "a student with an assigned three-exercise routine and practice history",
		load:        (*Seeder).studentWithAssignment,
	},
}

// Names lists the scenarios with their descriptions, sorted by name.
func Names() [][2]string {
	out := make([][2]string, 0, len(scenarios))
	for name, sc := range scenarios {
		out = append(out, [2]string{name, sc.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Seeder writes fixtures through the feature services. Its clock starts at
// the given time and moves forward as history is generated.
type Seeder struct {
	db   *gorm.DB
	keys storage.Keys
	at   time.Time
	deps apps.Deps
}

func New(db *gorm.DB, cfg *config.Config, start time.Time) *Seeder {
	s := &Seeder{db: db, keys: storage.NewKeys(cfg), at: start.UTC()}
	s.deps = apps.Deps{DB: db, Config: cfg, Keys: s.keys, Now: s.now}
	return s
}

func (s *Seeder) now() time.Time { return s.at }

func (s *Seeder) advance(d time.Duration) { s.at = s.at.Add(d) }

// Load clears the database and loads the named scenario.
func (s *Seeder) Load(name string) error {
	sc, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	if err := database.Reset(s.db); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	if err := sc.load(s); err != nil {
		return fmt.Errorf("failed to load scenario %s: %w", name, err)
	}
	slog.Info("scenario loaded", "scenario", name)
	return nil
}

func (s *Seeder) user(email string, teacher *models.User) (*models.User, error) {
	devID := models.DevAppleIDPrefix + email
	user := models.User{Email: email, AppleUserID: &devID, CreatedAt: s.now()}
	if teacher != nil {
		id := teacher.ID
		user.TeacherID = &id
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Seeder) piece(owner *models.User, title string) (*models.Piece, error) {
	id := uuid.New()
	key := s.keys.Piece(id)
	piece := models.Piece{
		ID:          id,
		OwnerID:     owner.ID,
		Title:       title,
		PDFFilename: title + ".pdf",
		S3Key:       &key,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	if err := s.db.Create(&piece).Error; err != nil {
		return nil, err
	}
	return &piece, nil
}

// routine creates a routine with one exercise per piece, in order.
func (s *Seeder) routine(owner *models.User, title string, pieces ...*models.Piece) (*models.Routine, error) {
	svc := routines.NewRoutineService(s.deps)
	routine, err := svc.Create(owner, routines.RoutineRequest{Title: title})
	if err != nil {
		return nil, err
	}
	for i, p := range pieces {
		seconds := 5 * (i + 1) * 60
		if _, err := svc.AddExercise(owner, routine.ID, routines.CreateExerciseRequest{
			PieceID:                p.ID,
			RecommendedTimeSeconds: &seconds,
		}); err != nil {
			return nil, err
		}
	}
	return routine, nil
}

type teacherFixture struct {
	teacher  *models.User
	students []*models.User
	pieces   []*models.Piece
	routine  *models.Routine
}

func (s *Seeder) teacher(titles ...string) (*teacherFixture, error) {
	teacher, err := s.user(DevTeacherEmail, nil)
	if err != nil {
		return nil, err
	}
	f := &teacherFixture{teacher: teacher}
	for _, email := range DevStudentEmails {
		student, err := s.user(email, teacher)
		if err != nil {
			return nil, err
		}
		f.students = append(f.students, student)
	}
	for _, title := range titles {
		p, err := s.piece(teacher, title)
		if err != nil {
			return nil, err
		}
		f.pieces = append(f.pieces, p)
	}
	return f, nil
}

func (s *Seeder) teacherWithStudents() error {
	f, err := s.teacher("Scales in C", "Bach Minuet", "Clementi Sonatina")
	if err != nil {
		return err
	}
	_, err = s.routine(f.teacher, "Daily Warmup", f.pieces[0], f.pieces[1])
	return err
}

func (s *Seeder) studentWithAssignment() error {
	f, err := s.teacher("Scales in C", "Bach Minuet", "Clementi Sonatina")
	if err != nil {
		return err
	}
	routine, err := s.routine(f.teacher, "Recital Prep", f.pieces...)
	if err != nil {
		return err
	}

	student := f.students[0]
	assigned, err := routines.NewRoutineService(s.deps).Assign(f.teacher, student.ID, routine.ID)
	if err != nil {
		return err
	}

	tracker := practice.NewPracticeService(s.deps)
	exercises := []models.Exercise{}
	if err := s.db.Where("routine_id = ?", assigned.Routine.ID).Order("order_index ASC").Find(&exercises).Error; err != nil {
		return err
	}

	for day := 0; day < 2; day++ {
		s.advance(24 * time.Hour)
		session, err := tracker.Start(student, assigned.Routine.ID)
		if err != nil {
			return err
		}
		for _, e := range exercises {
			s.advance(5 * time.Minute)
			spent := 300
			if _, err := tracker.CompleteExercise(student, session.ID, e.ID, practice.CompleteExerciseRequest{ActualTimeSeconds: practice.Some(spent)}); err != nil {
				return err
			}
		}
		if _, err := tracker.Complete(student, session.ID); err != nil {
			return err
		}
	}

	s.advance(24 * time.Hour)
	_, err = tracker.Start(student, assigned.Routine.ID)
	return err
}

// DevUsers creates or upgrades the development teacher and students. Running
// it again leaves existing users in place.
func (s *Seeder) DevUsers() ([]models.User, error) {
	emails := append([]string{DevTeacherEmail}, DevStudentEmails...)
	users := make([]models.User, 0, len(emails))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var teacher *models.User
		for _, email := range emails {
			devID := models.DevAppleIDPrefix + email
			var user models.User
			err := tx.Where("email = ?", email).First(&user).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				user = models.User{Email: email, AppleUserID: &devID, CreatedAt: s.now()}
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			case user.IsStub():
				if err := tx.Model(&user).Update("apple_user_id", devID).Error; err != nil {
					return err
				}
				user.AppleUserID = &devID
			}

			if teacher == nil {
				first := user
				teacher = &first
			} else if user.TeacherID == nil {
				id := teacher.ID
				if err := tx.Model(&user).Update("teacher_id", id).Error; err != nil {
					return err
				}
				user.TeacherID = &id
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
