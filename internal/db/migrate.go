package db

import (
	"errors"

	"github.com/ikkim/storefront/internal/app/model"
	"github.com/ikkim/storefront/pkg/logger"
	"github.com/ikkim/storefront/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DemoUserEmail    = "demo@storefront.test"
	DemoUserPassword = "password123"
)

func models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.CartItem{},
	}
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	ms := models()
	if err := db.AutoMigrate(ms...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", logger.Fields{
		"models_count": len(ms),
	})
	return nil
}

// Catalog is the storefront's fixed product list
func Catalog() []model.Product {
	p := func(pos int, id, name string, price int64, category model.ProductCategory, image, description string) model.Product {
		return model.Product{
			ID:          id,
			Name:        name,
			Price:       decimal.NewFromInt(price),
			Category:    category,
			Image:       image,
			Description: description,
			Position:    pos,
		}
	}

	return []model.Product{
		p(1, "1", "Modern Dining Set", 899, model.CategoryDiningSets, "/images/dining-set.jpg",
			"A sleek and modern dining set made of premium melamine material."),
		p(2, "2", "Classic Dining Set", 499, model.CategoryDiningSets, "/images/dining-set-1.jpg",
			"A timeless design for your dining area, made with quality melamine."),
		p(3, "3", "Wooden Wardrobe", 799, model.CategoryStorage, "/images/wardrobe.jpg",
			"A large wardrobe perfect for all your clothing needs, crafted from melamine."),
		p(4, "4", "Stackable Storage Boxes", 99, model.CategoryStorage, "/images/storage-box.jpg",
			"Compact and stackable storage boxes to organize your space."),
		p(5, "5", "Kitchen Shelf", 199, model.CategoryKitchen, "/images/kitchen-shelf.jpg",
			"A sturdy and stylish kitchen shelf for storing your kitchenware."),
		p(6, "6", "Kitchen Cabinet", 699, model.CategoryKitchen, "/images/kitchen-cabinet.jpg",
			"A multi-purpose cabinet for your kitchen, designed with melamine for durability."),
		p(7, "7", "Office Desk Organizer", 49, model.CategoryOfficeSupplies, "/images/desk-organizer.jpg",
			"A compact organizer to keep your office desk tidy and functional."),
		p(8, "8", "Office Desk", 299, model.CategoryOfficeSupplies, "/images/office-desk.jpg",
			"A modern office desk with a clean design, perfect for any workspace."),
		p(9, "9", "Melamine Plate Set", 39, model.CategoryDiningSets, "/images/plate-set.jpg",
			"Durable and elegant melamine plates for your dining table."),
		p(10, "10", "Bookshelf", 129, model.CategoryStorage, "/images/bookshelf.jpg",
			"A tall bookshelf made of melamine material for your books and decor."),
	}
}

// Seed upserts the catalog and creates the demo shopper if missing
func Seed(db *gorm.DB) error {
	logger.Info("Seeding initial data...")

	catalog := Catalog()
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "category", "price", "image", "position", "updated_at"}),
	}).Create(&catalog).Error
	if err != nil {
		logger.Error("Failed to seed catalog", err)
		return err
	}
	logger.Info("Catalog seeded", logger.Fields{"count": len(catalog)})

	if err := seedDemoUser(db); err != nil {
		logger.Error("Failed to seed demo user", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

func seedDemoUser(db *gorm.DB) error {
	var existing model.User
	err := db.Where("email = ?", DemoUserEmail).First(&existing).Error
	if err == nil {
		logger.Info("Demo user already seeded, skipping...")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(DemoUserPassword)
	if err != nil {
		return err
	}

	return db.Create(&model.User{
		Email:        DemoUserEmail,
		PasswordHash: hash,
		Name:         "Demo Shopper",
		Role:         model.RoleUser,
	}).Error
}
