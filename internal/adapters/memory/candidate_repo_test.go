package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

func TestCandidateRepo_AppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewCandidateRepo([]domain.Point{domain.NewPoint("Kiyomizu-dera", 34.9949, 135.7850)})

	p := domain.NewPoint("Ginkaku-ji", 35.0270, 135.7982)
	if err := repo.Append(ctx, &p); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	points, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}
	if points[0].Name != "Kiyomizu-dera" || points[1].Name != "Ginkaku-ji" {
		t.Errorf("Expected insertion order, got %s, %s", points[0].Name, points[1].Name)
	}
}

func TestCandidateRepo_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewCandidateRepo([]domain.Point{domain.NewPoint("Toji", 34.9806, 135.7478)})

	points, _ := repo.List(ctx)
	points[0].Weight = 1
	points[0].Name = "changed"

	again, _ := repo.List(ctx)
	if again[0].Weight != 0 || again[0].Name != "Toji" {
		t.Errorf("Expected stored point to be unchanged, got %+v", again[0])
	}
}

func TestCandidateRepo_DuplicateID(t *testing.T) {
	ctx := context.Background()
	p := domain.NewPoint("Toji", 34.9806, 135.7478)
	repo := NewCandidateRepo([]domain.Point{p})

	if err := repo.Append(ctx, &p); err == nil {
		t.Fatal("Expected error for duplicate id")
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Expected 1 point, got %d", n)
	}
}

func TestCandidateRepo_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	repo := NewCandidateRepo(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := domain.NewPoint("P", 35, 135)
			if err := repo.Append(ctx, &p); err != nil {
				t.Errorf("Append failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n, _ := repo.Count(ctx); n != 50 {
		t.Errorf("Expected 50 points, got %d", n)
	}
}
