package dishdash

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/eshaffer321/dishdash-go/internal/types"
)

const (
	defaultMealLimit = 20
	maxStreamPage    = 50
)

// mealService implements the MealService interface
type mealService struct {
	client *Client
}

// Query returns a meal query builder
func (s *mealService) Query() MealQueryBuilder {
	return &mealQueryBuilder{
		client:  s.client,
		filters: url.Values{},
		limit:   defaultMealLimit,
	}
}

// Get retrieves a single meal
func (s *mealService) Get(ctx context.Context, mealID string) (*Meal, error) {
	var meal Meal
	if err := s.client.get(ctx, types.MealsEndpoint+"/"+url.PathEscape(mealID), nil, &meal); err != nil {
		return nil, errors.Wrap(err, "failed to get meal")
	}
	if meal.ID == "" {
		return nil, ErrNotFound
	}
	return &meal, nil
}

// mealQueryBuilder implements MealQueryBuilder
type mealQueryBuilder struct {
	client  *Client
	filters url.Values
	limit   int
	offset  int
}

// WithCuisine filters by cuisine
func (b *mealQueryBuilder) WithCuisine(cuisine string) MealQueryBuilder {
	b.filters.Set("cuisine", cuisine)
	return b
}

// WithCook filters by cook ID
func (b *mealQueryBuilder) WithCook(cookID string) MealQueryBuilder {
	b.filters.Set("cookId", cookID)
	return b
}

// MaxPrice excludes meals costing more than price
func (b *mealQueryBuilder) MaxPrice(price float64) MealQueryBuilder {
	b.filters.Set("maxPrice", strconv.FormatFloat(price, 'f', -1, 64))
	return b
}

// AvailableOnly excludes meals that cannot be ordered right now
func (b *mealQueryBuilder) AvailableOnly() MealQueryBuilder {
	b.filters.Set("available", "true")
	return b
}

// Search sets search filter
func (b *mealQueryBuilder) Search(query string) MealQueryBuilder {
	b.filters.Set("search", query)
	return b
}

// Limit sets result limit
func (b *mealQueryBuilder) Limit(limit int) MealQueryBuilder {
	b.limit = limit
	return b
}

// Offset sets result offset
func (b *mealQueryBuilder) Offset(offset int) MealQueryBuilder {
	b.offset = offset
	return b
}

// Execute runs the query
func (b *mealQueryBuilder) Execute(ctx context.Context) (*MealList, error) {
	query := url.Values{}
	for k, v := range b.filters {
		query[k] = v
	}
	query.Set("limit", strconv.Itoa(b.limit))
	query.Set("offset", strconv.Itoa(b.offset))

	var result struct {
		Meals      []*Meal `json:"meals"`
		TotalCount int     `json:"totalCount"`
	}

	if err := b.client.get(ctx, types.MealsEndpoint, query, &result); err != nil {
		return nil, errors.Wrap(err, "failed to list meals")
	}

	return &MealList{
		Meals:      result.Meals,
		TotalCount: result.TotalCount,
		HasMore:    b.offset+len(result.Meals) < result.TotalCount && len(result.Meals) > 0,
		NextOffset: b.offset + len(result.Meals),
	}, nil
}

// Stream returns results as a channel, fetching page after page
func (b *mealQueryBuilder) Stream(ctx context.Context) (<-chan *Meal, <-chan error) {
	mealChan := make(chan *Meal)
	errChan := make(chan error, 1)

	go func() {
		defer close(mealChan)
		defer close(errChan)

		limit := b.limit
		if limit <= 0 || limit > maxStreamPage {
			limit = maxStreamPage
		}

		page := &mealQueryBuilder{
			client:  b.client,
			filters: b.filters,
			limit:   limit,
			offset:  b.offset,
		}

		for {
			result, err := page.Execute(ctx)
			if err != nil {
				errChan <- err
				return
			}

			for _, meal := range result.Meals {
				select {
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				case mealChan <- meal:
				}
			}

			if !result.HasMore {
				return
			}
			page.offset = result.NextOffset
		}
	}()

	return mealChan, errChan
}
