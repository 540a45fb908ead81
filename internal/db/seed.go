package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedCity struct {
	name string
	lat  float64
	lng  float64
}

var seedCities = []seedCity{
	{"Mumbai", 19.0760, 72.8777},
	{"Delhi", 28.7041, 77.1025},
	{"Bengaluru", 12.9716, 77.5946},
	{"Hyderabad", 17.3850, 78.4867},
	{"Chennai", 13.0827, 80.2707},
	{"Pune", 18.5204, 73.8567},
}

var (
	seedReligions   = []string{"Hindu", "Muslim", "Christian", "Sikh", "Jain"}
	seedCastes      = []string{"Brahmin", "Kshatriya", "Vaishya", "Reddy", "Nair", "Jat"}
	seedEducations  = []string{"Bachelors", "Masters", "Doctorate", "Diploma"}
	seedOccupations = []string{"Software Engineer", "Doctor", "Teacher", "Business Owner", "Lawyer", "Designer"}
	seedDiets       = []string{"Vegetarian", "Non-Vegetarian", "Vegan", "Eggetarian"}
	seedHobbies     = []string{"Reading", "Cooking", "Travel", "Photography", "Gardening", "Yoga", "Cricket", "Music"}
	seedInterests   = []string{"Technology", "Movies", "Fitness", "Art", "Food", "Nature", "History"}
	seedGoals       = []string{"Buy a home", "Travel the world", "Start a business", "Higher studies"}
)

// SeedTestData resets the database and populates it with demo users and
// an interleaved lattice of interests and matches.
//
// Behavior:
//  1. Clears all tables.
//  2. Creates 20 users (10 male, 10 female) with full profiles,
//     preferences, and hashed passwords.
//  3. Generates pending interests with ~70% like probability; every 3rd
//     pair becomes mutual — accepted match, chat room, and a short
//     message exchange.
func SeedTestData(database *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{
		"message_read_receipts", "messages", "chat_participants", "chat_rooms",
		"notifications", "likes", "blocks", "matches",
		"preferences", "profiles", "users",
	} {
		if err := database.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userIDs := make([]string, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := "Male"
		accepted := []string{"Female"}
		if i > 10 {
			gender = "Female"
			accepted = []string{"Male"}
		}

		city := seedCities[r.Intn(len(seedCities))]
		birth := time.Date(1988+r.Intn(12), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC)
		lat := city.lat + (r.Float64()-0.5)*0.2
		lng := city.lng + (r.Float64()-0.5)*0.2
		height := 150 + r.Intn(45)

		user := User{
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Active:       true,
			LastActiveAt: time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := database.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		userIDs = append(userIDs, user.ID)

		religion := seedReligions[r.Intn(len(seedReligions))]
		profile := Profile{
			UserID:        user.ID,
			DisplayName:   fmt.Sprintf("User %d", i),
			Gender:        gender,
			BirthDate:     &birth,
			HeightCM:      &height,
			MaritalStatus: "Never Married",
			Religion:      religion,
			Caste:         seedCastes[r.Intn(len(seedCastes))],
			MotherTongue:  "Hindi",
			Education:     seedEducations[r.Intn(len(seedEducations))],
			Occupation:    seedOccupations[r.Intn(len(seedOccupations))],
			AnnualIncome:  fmt.Sprintf("%d00000", 5+r.Intn(20)),
			Diet:          seedDiets[r.Intn(len(seedDiets))],
			Smoking:       "Never",
			Drinking:      []string{"Never", "Occasionally"}[r.Intn(2)],
			Hobbies:       pick(r, seedHobbies, 3),
			Interests:     pick(r, seedInterests, 3),
			FamilyValues:  []string{"Traditional", "Moderate", "Liberal"}[r.Intn(3)],
			WantsChildren: []string{"Yes", "Maybe"}[r.Intn(2)],
			FutureGoals:   pick(r, seedGoals, 2),
			Latitude:      &lat,
			Longitude:     &lng,
			City:          city.name,
			Country:       "India",
		}
		if err := database.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		pref := Preference{
			UserID:            user.ID,
			AcceptedGenders:   accepted,
			PreferredReligion: []string{religion},
			PreferredCaste:    pick(r, seedCastes, 2),
		}
		if err := database.Create(&pref).Error; err != nil {
			return fmt.Errorf("failed to seed preference: %w", err)
		}
	}
	log.Println("Seeded 20 users with profiles and preferences.")

	// Interests and matches: males 0-9 toward females 10-19.
	counter := 0
	for i := 0; i < 10; i++ {
		for j := 0; j < 3; j++ {
			sender := userIDs[i]
			receiver := userIDs[10+r.Intn(10)]

			var existing Match
			err := database.Where(
				"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				sender, receiver, receiver, sender,
			).First(&existing).Error
			if err == nil {
				continue
			}

			if r.Intn(100) >= 70 {
				continue
			}

			m := Match{SenderID: sender, ReceiverID: receiver, Status: MatchStatusPending}
			if err := database.Create(&m).Error; err != nil {
				return fmt.Errorf("failed to seed match: %w", err)
			}
			like := Like{FromUserID: sender, ToUserID: receiver}
			database.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)

			// Every 3rd seeded interest becomes mutual.
			if counter%3 == 0 {
				if err := seedAcceptedMatch(database, r, &m); err != nil {
					return err
				}
			}
			counter++
		}
	}
	log.Printf("Seeded %d matches.", counter)

	return nil
}

func seedAcceptedMatch(database *gorm.DB, r *rand.Rand, m *Match) error {
	back := Like{FromUserID: m.ReceiverID, ToUserID: m.SenderID}
	database.Clauses(clause.OnConflict{DoNothing: true}).Create(&back)

	room := ChatRoom{}
	if err := database.Create(&room).Error; err != nil {
		return fmt.Errorf("failed to seed room: %w", err)
	}
	participants := []ChatParticipant{
		{ChatRoomID: room.ID, UserID: m.SenderID},
		{ChatRoomID: room.ID, UserID: m.ReceiverID},
	}
	if err := database.Create(&participants).Error; err != nil {
		return fmt.Errorf("failed to seed participants: %w", err)
	}

	err := database.Model(&Match{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{"status": MatchStatusAccepted, "chat_room_id": room.ID}).Error
	if err != nil {
		return fmt.Errorf("failed to accept seeded match: %w", err)
	}

	openers := []string{"Hi there!", "Hello, nice to match with you!", "Hey, how are you?"}
	msg := Message{
		ChatRoomID:  room.ID,
		SenderID:    m.SenderID,
		Content:     openers[r.Intn(len(openers))],
		MessageType: "TEXT",
		Status:      MessageStatusSent,
	}
	if err := database.Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to seed message: %w", err)
	}
	receipt := MessageReadReceipt{MessageID: msg.ID, UserID: m.SenderID}
	database.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipt)

	return nil
}

func pick(r *rand.Rand, pool []string, n int) []string {
	idx := r.Perm(len(pool))
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}
