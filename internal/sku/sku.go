// Package sku builds human-readable product SKUs of the form
// {CATEGORY_CODE}-{USER_CODE}-{RANDOM6}, e.g. "ELEC-NCRF-8QZT2V".
package sku

import (
	"context"
	"errors"
	"strings"

	"github.com/Aphatheology/future-stack-assessment/internal/apperror"
	"github.com/Aphatheology/future-stack-assessment/internal/identifier"
	"github.com/Aphatheology/future-stack-assessment/internal/repository"

	"go.uber.org/zap"
)

// categoryCodes maps the seeded category names to fixed 4-letter codes.
// Names outside the table get a derived code (see categoryCode).
var categoryCodes = map[string]string{
	"Electronics":   "ELEC",
	"Clothing":      "CLTH",
	"Books":         "BOOK",
	"Home & Garden": "HOME",
	"Sports":        "SPRT",
	"Beauty":        "BEAU",
	"Automotive":    "AUTO",
	"Toys":          "TOYS",
	"Health":        "HLTH",
	"Food":          "FOOD",
}

// Generator produces unique product SKUs.
type Generator struct {
	categoryRepo repository.CategoryRepository
	productRepo  repository.ProductRepository
	logger       *zap.Logger
}

// NewGenerator creates a new SKU Generator
func NewGenerator(categoryRepo repository.CategoryRepository, productRepo repository.ProductRepository, logger *zap.Logger) *Generator {
	return &Generator{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		logger:       logger,
	}
}

// GenerateProductSKU builds a SKU for a product in the given category
// created by the given user. The candidate is checked against existing
// products once; on a collision a single replacement suffix is issued
// without a second check. A back-to-back collision is astronomically
// unlikely given the 6-character random space.
func (g *Generator) GenerateProductSKU(ctx context.Context, categoryID, userID string) (string, error) {
	categoryCode, err := g.categoryCode(ctx, categoryID)
	if err != nil {
		return "", err
	}

	userCode, err := userIDCode(userID)
	if err != nil {
		return "", err
	}

	candidate := categoryCode + "-" + userCode + "-" + randomSuffix()

	existing, err := g.productRepo.FindBySKU(ctx, candidate)
	if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
		return "", err
	}

	if existing != nil {
		replacement := categoryCode + "-" + userCode + "-" + randomSuffix()
		g.logger.Warn("SKU collision, issuing replacement",
			zap.String("collided", candidate),
			zap.String("replacement", replacement),
		)
		return replacement, nil
	}

	return candidate, nil
}

// categoryCode resolves a category to its 4-letter code. Unmapped
// single-word names use their first 4 letters; multi-word names use
// initials padded with X. Codes are always uppercase and 4 characters.
func (g *Generator) categoryCode(ctx context.Context, categoryID string) (string, error) {
	category, err := g.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return "", apperror.Newf(apperror.CodeNotFound, "Category with id %s not found", categoryID)
		}
		return "", err
	}

	if code, ok := categoryCodes[category.Name]; ok {
		return code, nil
	}

	return DeriveCategoryCode(category.Name), nil
}

// DeriveCategoryCode computes the fallback code for a category name not
// present in the static table.
func DeriveCategoryCode(name string) string {
	words := strings.Fields(name)

	if len(words) == 0 {
		return "XXXX"
	}

	// Work in runes so accented initials survive whole instead of
	// being cut into bytes.
	var code []rune
	if len(words) == 1 {
		code = []rune(words[0])
	} else {
		code = make([]rune, 0, len(words))
		for _, word := range words {
			code = append(code, []rune(word)[0])
		}
	}

	for len(code) < 4 {
		code = append(code, 'X')
	}
	return strings.ToUpper(string(code[:4]))
}

// userIDCode extracts the last 4 characters of the user identifier's
// ULID part, uppercased. The ULID must carry a decodable timestamp.
func userIDCode(userID string) (string, error) {
	parsed := identifier.Parse(userID)
	if parsed == nil {
		return "", apperror.BadRequest("Invalid user ID format: must be a valid ULID")
	}
	if _, ok := identifier.ExtractTimestamp(userID); !ok {
		return "", apperror.BadRequest("Invalid user ID format: must be a valid ULID")
	}
	return strings.ToUpper(parsed.ULID[len(parsed.ULID)-4:]), nil
}

// randomSuffix returns the trailing 6 characters of a fresh ULID.
func randomSuffix() string {
	u := identifier.NewULID()
	return u[len(u)-6:]
}
