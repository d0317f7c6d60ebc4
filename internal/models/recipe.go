package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipe is owned by its author. CreatedAt doubles as the publication date
// and recipes are listed newest-first.
type Recipe struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time          `json:"pub_date"`
	UpdatedAt   time.Time          `json:"-"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null;check:cooking_time >= 1" json:"cooking_time"`
	ImageURL    string             `gorm:"size:255" json:"image"`
	AuthorID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"author_id"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Tags        []Tag              `gorm:"many2many:recipe_tags" json:"-"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"-"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecipeIngredient binds a recipe to an ingredient with a quantity. Lines
// are owned by the recipe and fully replaced on update.
type RecipeIngredient struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecipeID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_recipe_ingredient,unique" json:"recipe_id"`
	IngredientID uuid.UUID  `gorm:"type:uuid;not null;index:idx_recipe_ingredient,unique" json:"ingredient_id"`
	Amount       int        `gorm:"not null;check:amount >= 1" json:"amount"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ri *RecipeIngredient) BeforeCreate(tx *gorm.DB) error {
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	return nil
}

type Favorite struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_favorite_pair,unique" json:"user_id"`
	RecipeID  uuid.UUID `gorm:"type:uuid;not null;index:idx_favorite_pair,unique" json:"recipe_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

type ShoppingCartEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_cart_pair,unique" json:"user_id"`
	RecipeID  uuid.UUID `gorm:"type:uuid;not null;index:idx_cart_pair,unique" json:"recipe_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (s *ShoppingCartEntry) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (ShoppingCartEntry) TableName() string { return "shopping_cart_entries" }
