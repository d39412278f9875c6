package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mealagent"
	"mealagent/nutrient"
)

// MealRecord is one persisted meal.
type MealRecord struct {
	ID                     string
	Description            string
	EatenAt                time.Time
	Macros                 mealagent.Macros
	Category               string
	CookingMethod          string
	Nutrients              nutrient.Map
	InteractionReasoning   string
	ProcessImpactReasoning string
	Ingredients            []IngredientRecord
}

// IngredientRecord is the persisted outcome of one ingredient's estimation loop.
type IngredientRecord struct {
	Name       string
	Amount     string
	Rounds     int
	Approved   bool
	Exhausted  bool
	Confidence mealagent.Confidence
	Estimates  map[string]float64
}

// RecordFromResult builds the record stored for result, eaten at eatenAt.
// Ingredients are ordered by their name within the meal.
func RecordFromResult(result mealagent.MealResult, eatenAt time.Time) MealRecord {
	names := make([]string, 0, len(result.Ingredients))
	for name := range result.Ingredients {
		names = append(names, name)
	}
	sort.Strings(names)

	ings := make([]IngredientRecord, 0, len(names))
	for _, name := range names {
		rec := result.Ingredients[name]
		ings = append(ings, IngredientRecord{
			Name:       name,
			Amount:     rec.Ingredient.Amount,
			Rounds:     rec.Round,
			Approved:   rec.Approved,
			Exhausted:  rec.Exhausted,
			Confidence: rec.Confidence,
			Estimates:  rec.Estimates,
		})
	}

	return MealRecord{
		Description:            result.Description,
		EatenAt:                eatenAt,
		Macros:                 result.Macros,
		Category:               result.MealCategory,
		CookingMethod:          result.CookingProcess.Method,
		Nutrients:              result.Estimates.Complete(),
		InteractionReasoning:   result.InteractionReasoning,
		ProcessImpactReasoning: result.ProcessImpactReasoning,
		Ingredients:            ings,
	}
}

// Nutrients returns the nutrient totals of each record, in order.
func Nutrients(records []MealRecord) []nutrient.Map {
	out := make([]nutrient.Map, 0, len(records))
	for _, r := range records {
		out = append(out, r.Nutrients)
	}
	return out
}

// SQLiteStore keeps meals and their ingredients in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath. ":memory:" is
// accepted for an ephemeral store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS meals (
        id TEXT PRIMARY KEY,
        description TEXT NOT NULL,
        eaten_at INTEGER NOT NULL,
        calories REAL NOT NULL,
        protein REAL NOT NULL,
        carbs REAL NOT NULL,
        fat REAL NOT NULL,
        category TEXT NOT NULL,
        cooking_method TEXT NOT NULL,
        nutrients TEXT NOT NULL,
        interaction_reasoning TEXT NOT NULL,
        process_impact_reasoning TEXT NOT NULL,
        created_at INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS meal_ingredients (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        meal_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        name TEXT NOT NULL,
        amount TEXT NOT NULL,
        rounds INTEGER NOT NULL,
        approved INTEGER NOT NULL,
        exhausted INTEGER NOT NULL,
        confidence TEXT NOT NULL,
        estimates TEXT NOT NULL,
        FOREIGN KEY (meal_id) REFERENCES meals(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_meals_eaten_at ON meals(eaten_at);
    CREATE INDEX IF NOT EXISTS idx_meal_ingredients_meal_id ON meal_ingredients(meal_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveMeal stores rec and its ingredients in one transaction and returns the new meal id.
// A zero EatenAt is stored as the current time.
func (s *SQLiteStore) SaveMeal(ctx context.Context, rec MealRecord) (string, error) {
	id := uuid.NewString()
	now := s.now()
	if rec.EatenAt.IsZero() {
		rec.EatenAt = now
	}

	nutrients, err := json.Marshal(rec.Nutrients.Complete())
	if err != nil {
		return "", fmt.Errorf("failed to encode nutrients: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO meals (id, description, eaten_at, calories, protein, carbs, fat, category,
            cooking_method, nutrients, interaction_reasoning, process_impact_reasoning, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		id, rec.Description, rec.EatenAt.UnixMilli(), rec.Macros.Calories, rec.Macros.Protein,
		rec.Macros.Carbs, rec.Macros.Fat, rec.Category, rec.CookingMethod, string(nutrients),
		rec.InteractionReasoning, rec.ProcessImpactReasoning, now.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to insert meal: %w", err)
	}

	for i, ing := range rec.Ingredients {
		estimates, err := json.Marshal(ing.Estimates)
		if err != nil {
			return "", fmt.Errorf("failed to encode estimates for %s: %w", ing.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO meal_ingredients (meal_id, position, name, amount, rounds, approved, exhausted, confidence, estimates)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        `,
			id, i, ing.Name, ing.Amount, ing.Rounds, ing.Approved, ing.Exhausted, string(ing.Confidence), string(estimates))
		if err != nil {
			return "", fmt.Errorf("failed to insert ingredient: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit meal: %w", err)
	}

	slog.Info("STORE: meal saved", "id", id, "ingredients", len(rec.Ingredients))
	return id, nil
}

// MealsBetween returns the meals eaten in [start, end), oldest first.
func (s *SQLiteStore) MealsBetween(ctx context.Context, start, end time.Time) ([]MealRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, description, eaten_at, calories, protein, carbs, fat, category,
            cooking_method, nutrients, interaction_reasoning, process_impact_reasoning
        FROM meals
        WHERE eaten_at >= ? AND eaten_at < ?
        ORDER BY eaten_at ASC, created_at ASC
    `, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	var meals []MealRecord
	for rows.Next() {
		var (
			rec       MealRecord
			eatenAt   int64
			nutrients string
		)
		err := rows.Scan(&rec.ID, &rec.Description, &eatenAt, &rec.Macros.Calories, &rec.Macros.Protein,
			&rec.Macros.Carbs, &rec.Macros.Fat, &rec.Category, &rec.CookingMethod, &nutrients,
			&rec.InteractionReasoning, &rec.ProcessImpactReasoning)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		rec.EatenAt = time.UnixMilli(eatenAt)

		var raw map[string]float64
		if err := json.Unmarshal([]byte(nutrients), &raw); err != nil {
			return nil, fmt.Errorf("failed to decode nutrients of meal %s: %w", rec.ID, err)
		}
		m, unknown := nutrient.FromRaw(raw)
		if len(unknown) > 0 {
			slog.Warn("STORE: stored meal has unknown nutrients", "id", rec.ID, "keys", unknown)
		}
		rec.Nutrients = m.Complete()
		meals = append(meals, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meals: %w", err)
	}
	// Ingredients are loaded after the meal cursor closes; the pool holds one connection.
	rows.Close()

	for i := range meals {
		ings, err := s.ingredients(ctx, meals[i].ID)
		if err != nil {
			return nil, err
		}
		meals[i].Ingredients = ings
	}
	return meals, nil
}

func (s *SQLiteStore) ingredients(ctx context.Context, mealID string) ([]IngredientRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, amount, rounds, approved, exhausted, confidence, estimates
        FROM meal_ingredients
        WHERE meal_id = ?
        ORDER BY position ASC
    `, mealID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	var out []IngredientRecord
	for rows.Next() {
		var (
			ing        IngredientRecord
			confidence string
			estimates  string
		)
		if err := rows.Scan(&ing.Name, &ing.Amount, &ing.Rounds, &ing.Approved, &ing.Exhausted, &confidence, &estimates); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ing.Confidence = mealagent.ParseConfidence(confidence)
		if err := json.Unmarshal([]byte(estimates), &ing.Estimates); err != nil {
			return nil, fmt.Errorf("failed to decode estimates of %s: %w", ing.Name, err)
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}
