package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"campusflow/internal/bootstrap"
	"campusflow/internal/config"
	"campusflow/internal/database"
	"campusflow/internal/logger"
	"campusflow/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultPassword = "password123"

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := bootstrap.OpenStore(ctx, cfg.Database, logger.Discard())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("Failed to close database connection: %v", err)
		}
	}()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	admin, err := ensureUser(ctx, db, database.CreateUserParams{
		Name:            "Campus Admin",
		Email:           "admin@campusflow.com",
		PasswordHash:    string(hashedPassword),
		Role:            model.UserRoleAdmin,
		ProfileComplete: true,
	})
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	students := []database.CreateUserParams{
		{Name: "Asha Rao", Email: "asha@campusflow.com", Course: "B.Tech", Department: "CSE", Year: 2, Interests: []string{"ai", "robotics"}},
		{Name: "Ravi Kumar", Email: "ravi@campusflow.com", Course: "B.Tech", Department: "ECE", Year: 3, Interests: []string{"music"}},
		{Name: "Meera Iyer", Email: "meera@campusflow.com", Course: "MBA", Department: "Management", Year: 1, Interests: []string{"finance"}},
	}
	for _, s := range students {
		s.PasswordHash = string(hashedPassword)
		s.Role = model.UserRoleStudent
		s.ProfileComplete = true
		if _, err := ensureUser(ctx, db, s); err != nil {
			log.Fatalf("Failed to create student %s: %v", s.Email, err)
		}
	}

	// Titles carry a batch suffix so repeated runs do not collide.
	code := uuid.NewString()[:6]

	now := time.Now().UTC()
	events := []database.CreateEventParams{
		{
			Title:          "Intro to Machine Learning " + code,
			Description:    "Hands-on session on supervised learning.",
			Category:       model.EventCategoryTechnical,
			Date:           now.Add(7 * 24 * time.Hour),
			Venue:          "Lab 3",
			Capacity:       40,
			AllowedCourses: []string{"B.Tech"},
			AllowedYears:   []int{2, 3, 4},
			Details:        model.TechnicalDetails{GuestSpeaker: "Dr. Sen", Prerequisites: "Python"},
			Tags:           []string{"ai"},
		},
		{
			Title:       "Spring Cultural Night " + code,
			Description: "Music and dance performances.",
			Category:    model.EventCategoryCultural,
			Date:        now.Add(14 * 24 * time.Hour),
			Venue:       "Main Auditorium",
			Details:     model.CulturalDetails{Performer: "Campus Band"},
			Tags:        []string{"music"},
		},
		{
			Title:              "Campus Placement Drive " + code,
			Description:        "Recruitment drive for final year students.",
			Category:           model.EventCategoryPlacement,
			Date:               now.Add(21 * 24 * time.Hour),
			Venue:              "Placement Cell",
			Capacity:           100,
			AllowedDepartments: []string{"CSE", "ECE"},
			AllowedYears:       []int{4},
			Details:            model.PlacementDetails{CompanyName: "Acme Corp", Roles: []string{"SDE"}},
		},
	}

	for _, ev := range events {
		ev.OrganizerID = admin.ID
		ev.Status = model.EventStatusPublished
		ev.Modules = model.DefaultEventModules()
		created, err := db.CreateEvent(ctx, ev)
		if err != nil {
			log.Fatalf("Failed to create event %q: %v", ev.Title, err)
		}
		fmt.Printf("Created event: %s (%s)\n", created.Title, created.ID)
	}

	fmt.Println("\nTest data created successfully!")
	fmt.Println("\nLogin credentials (all users):")
	fmt.Println("Password:", defaultPassword)
	fmt.Println("\nUsers:")
	fmt.Println("- admin@campusflow.com (admin)")
	for _, s := range students {
		fmt.Printf("- %s (student)\n", s.Email)
	}
}

// ensureUser creates the user unless one with the same email already exists.
func ensureUser(ctx context.Context, db database.Store, params database.CreateUserParams) (model.User, error) {
	existing, err := db.GetUserByEmail(ctx, params.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return model.User{}, err
	}
	return db.CreateUser(ctx, params)
}
