package main

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/ray-remotestate/foodie/database"
	"github.com/ray-remotestate/foodie/database/dbhelper"
	"github.com/ray-remotestate/foodie/models"
	"github.com/ray-remotestate/foodie/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type seedOptions struct {
	Seed         int64
	AdminEmail   string
	Password     string
	Restaurants  int
	ItemsPerMenu int
	Drivers      int
	Customers    int
}

var seedOpts seedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with a demo catalog and accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := cfg.Logger()
		db, err := database.Connect(cmd.Context(), cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db, false); err != nil {
			return err
		}
		return seed(cmd.Context(), db, seedOpts, log)
	},
}

func init() {
	f := seedCmd.Flags()
	f.Int64Var(&seedOpts.Seed, "seed", 42, "random seed for generated data")
	f.StringVar(&seedOpts.AdminEmail, "admin-email", "admin@foodie.local", "email of the admin account")
	f.StringVar(&seedOpts.Password, "password", "password123", "password for every seeded account")
	f.IntVar(&seedOpts.Restaurants, "restaurants", 5, "number of restaurants, one owner each")
	f.IntVar(&seedOpts.ItemsPerMenu, "items", 8, "menu items per restaurant")
	f.IntVar(&seedOpts.Drivers, "drivers", 3, "number of delivery accounts")
	f.IntVar(&seedOpts.Customers, "customers", 10, "number of customer accounts")
}

var cuisines = []string{"italian", "mexican", "indian", "chinese", "thai", "american", "japanese", "greek"}

type seeder struct {
	db   *sql.DB
	fake faker.Faker
	hash string
	log  logrus.FieldLogger
}

func seed(ctx context.Context, db *sql.DB, opts seedOptions, log logrus.FieldLogger) error {
	hash, err := utils.HashPassword(opts.Password)
	if err != nil {
		return err
	}
	s := seeder{db: db, fake: faker.NewWithSeed(rand.NewSource(opts.Seed)), hash: hash, log: log}

	if _, err := s.user(ctx, "Admin", opts.AdminEmail, models.RoleAdmin); err != nil {
		return err
	}
	for i := 0; i < opts.Drivers; i++ {
		if _, err := s.user(ctx, "", "", models.RoleDelivery); err != nil {
			return err
		}
	}
	for i := 0; i < opts.Customers; i++ {
		if _, err := s.user(ctx, "", "", models.RoleCustomer); err != nil {
			return err
		}
	}
	for i := 0; i < opts.Restaurants; i++ {
		owner, err := s.user(ctx, "", "", models.RoleRestaurant)
		if err != nil {
			return err
		}
		restaurant, err := s.restaurant(ctx, owner.ID)
		if err != nil {
			return err
		}
		for j := 0; j < opts.ItemsPerMenu; j++ {
			if err := s.menuItem(ctx, restaurant.ID); err != nil {
				return err
			}
		}
	}
	log.WithFields(logrus.Fields{
		"restaurants": opts.Restaurants,
		"drivers":     opts.Drivers,
		"customers":   opts.Customers,
	}).Info("seed is complete")
	return nil
}

// user creates an account with the given role. Empty name and email are generated.
func (s seeder) user(ctx context.Context, name, email string, role models.Role) (*models.User, error) {
	if name == "" {
		name = s.fake.Person().Name()
	}
	if email == "" {
		email = fmt.Sprintf("%s.%d@foodie.local", role, s.fake.IntBetween(100000, 999999))
	}
	email = strings.ToLower(email)

	exists, err := dbhelper.IsUserExists(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if exists {
		s.log.WithField("email", email).Info("user already seeded")
		return dbhelper.GetUserByEmail(ctx, s.db, email)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Phone:    s.fake.Phone().Number(),
		Password: s.hash,
		Address:  s.address(),
		IsActive: true,
		Roles:    []models.Role{role},
	}
	err = database.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := dbhelper.CreateUser(ctx, tx, user); err != nil {
			return err
		}
		return dbhelper.AssignRole(ctx, tx, user.ID, role)
	})
	return user, err
}

func (s seeder) address() models.Address {
	a := s.fake.Address()
	return models.Address{
		Street:  a.StreetAddress(),
		City:    a.City(),
		State:   a.State(),
		ZipCode: a.PostCode(),
	}
}

func (s seeder) restaurant(ctx context.Context, ownerID uuid.UUID) (*models.Restaurant, error) {
	r := &models.Restaurant{
		Name:        s.fake.Company().Name(),
		Description: s.fake.Lorem().Sentence(8),
		Cuisine:     []string{s.fake.RandomStringElement(cuisines)},
		Address:     s.address(),
		Contact:     models.Contact{Phone: s.fake.Phone().Number()},
		DeliveryInfo: models.DeliveryInfo{
			Fee:           decimal.New(int64(s.fake.IntBetween(0, 599)), -2),
			MinimumOrder:  decimal.NewFromInt(int64(s.fake.IntBetween(0, 15))),
			EstimatedTime: s.fake.IntBetween(20, 45),
			Radius:        float64(s.fake.IntBetween(3, 10)),
		},
		IsActive: true,
		OwnerID:  ownerID,
	}
	if err := dbhelper.CreateRestaurant(ctx, s.db, r); err != nil {
		return nil, err
	}
	r.Rating = models.Rating{
		Average: float64(s.fake.IntBetween(30, 50)) / 10,
		Count:   s.fake.IntBetween(5, 400),
	}
	return r, dbhelper.SetRestaurantRating(ctx, s.db, r.ID, r.Rating)
}

func (s seeder) menuItem(ctx context.Context, restaurantID uuid.UUID) error {
	item := &models.MenuItem{
		RestaurantID:    restaurantID,
		Name:            dishName(s.fake.Lorem().Word(), s.fake.Lorem().Word()),
		Description:     s.fake.Lorem().Sentence(10),
		Price:           decimal.New(int64(s.fake.IntBetween(299, 2499)), -2),
		Category:        s.fake.RandomStringElement(models.MenuCategories),
		IsAvailable:     true,
		IsPopular:       s.fake.IntBetween(0, 4) == 0,
		PreparationTime: s.fake.IntBetween(5, 30),
		Customizations: []models.CustomizationOption{
			{Name: "extra cheese", Price: decimal.RequireFromString("1.50")},
			{Name: "large", Price: decimal.RequireFromString("2.00")},
		},
	}
	return dbhelper.CreateMenuItem(ctx, s.db, item)
}

func dishName(words ...string) string {
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
