package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"rankingsengine/internal/models"
)

const (
	collectionSeasons      = "seasons"
	collectionTeams        = "teams"
	collectionPlayers      = "players"
	collectionGames        = "games"
	collectionRankings     = "rankings"
	collectionHistory      = "rankings-history"
	collectionCalculations = "rankings-calculations"
)

// FirestoreStore implements Store against a Firestore database. Every
// method is a thin wrapper translating a document read or write into the
// domain model; it holds no business logic.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore dials Firestore using the given project and
// credentials file (empty string uses application-default credentials).
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to firestore: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) LoadSeasonsOrdered(ctx context.Context) ([]models.Season, error) {
	iter := s.client.Collection(collectionSeasons).OrderBy("dateStart", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var seasons []models.Season
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load seasons: %w", err)
		}
		var season models.Season
		if err := doc.DataTo(&season); err != nil {
			return nil, fmt.Errorf("decode season %s: %w", doc.Ref.ID, err)
		}
		season.ID = doc.Ref.ID
		seasons = append(seasons, season)
	}
	return seasons, nil
}

// LoadCompletedGamesOrdered pages through the games collection ordered by
// date, filtering to completed games in application code since
// "completed" is a derived property, not a stored field. Paging happens
// one Firestore page at a time via the iterator; the whole collection is
// never pulled in a single round-trip.
func (s *FirestoreStore) LoadCompletedGamesOrdered(ctx context.Context) ([]models.Game, error) {
	iter := s.client.Collection(collectionGames).OrderBy("date", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var games []models.Game
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load games: %w", err)
		}
		var game models.Game
		if err := doc.DataTo(&game); err != nil {
			return nil, fmt.Errorf("decode game %s: %w", doc.Ref.ID, err)
		}
		game.ID = doc.Ref.ID
		if game.Completed() {
			games = append(games, game)
		}
	}
	return games, nil
}

func (s *FirestoreStore) LoadTeam(ctx context.Context, teamID string) (models.Team, error) {
	doc, err := s.client.Collection(collectionTeams).Doc(teamID).Get(ctx)
	if err != nil {
		return models.Team{}, fmt.Errorf("load team %s: %w", teamID, err)
	}
	var team models.Team
	if err := doc.DataTo(&team); err != nil {
		return models.Team{}, fmt.Errorf("decode team %s: %w", teamID, err)
	}
	team.ID = doc.Ref.ID
	return team, nil
}

func (s *FirestoreStore) LoadPlayerName(ctx context.Context, playerID string) (string, error) {
	player, err := s.LoadPlayer(ctx, playerID)
	if err != nil {
		return "", err
	}
	return player.DisplayName(), nil
}

func (s *FirestoreStore) LoadPlayer(ctx context.Context, playerID string) (models.Player, error) {
	doc, err := s.client.Collection(collectionPlayers).Doc(playerID).Get(ctx)
	if err != nil {
		return models.Player{}, fmt.Errorf("load player %s: %w", playerID, err)
	}
	var player models.Player
	if err := doc.DataTo(&player); err != nil {
		return models.Player{}, fmt.Errorf("decode player %s: %w", playerID, err)
	}
	player.ID = doc.Ref.ID
	return player, nil
}

func (s *FirestoreStore) WriteRankingSnapshot(ctx context.Context, snapshot models.RankingSnapshot) error {
	_, err := s.client.Collection(collectionHistory).Doc(snapshot.ID).Set(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("write ranking snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// WritePlayerRatings commits ratings in chunks of at most 500 operations,
// Firestore's per-batch limit, rather than one write per player.
func (s *FirestoreStore) WritePlayerRatings(ctx context.Context, ratings []models.PlayerRating) error {
	const maxBatchOps = 500
	for start := 0; start < len(ratings); start += maxBatchOps {
		end := start + maxBatchOps
		if end > len(ratings) {
			end = len(ratings)
		}

		batch := s.client.Batch()
		for _, rating := range ratings[start:end] {
			ref := s.client.Collection(collectionRankings).Doc(rating.PlayerID)
			batch.Set(ref, rating)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("write player ratings batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (s *FirestoreStore) CreateCalculationState(ctx context.Context, state models.CalculationState) (string, error) {
	ref := s.client.Collection(collectionCalculations).NewDoc()
	state.ID = ref.ID
	if _, err := ref.Set(ctx, state); err != nil {
		return "", fmt.Errorf("create calculation state: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) UpdateCalculationState(ctx context.Context, id string, update CalculationStateUpdate) error {
	ref := s.client.Collection(collectionCalculations).Doc(id)

	var updates []firestore.Update
	if update.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: *update.Status})
	}
	if update.Progress != nil {
		updates = append(updates, firestore.Update{Path: "progress", Value: *update.Progress})
	}
	if update.CompletedAt != nil {
		updates = append(updates, firestore.Update{Path: "completedAt", Value: *update.CompletedAt})
	}
	if update.Error != nil {
		updates = append(updates, firestore.Update{Path: "error", Value: *update.Error})
	}
	if update.Warnings != nil {
		updates = append(updates, firestore.Update{Path: "warnings", Value: update.Warnings})
	}

	if len(updates) == 0 {
		return nil
	}

	if _, err := ref.Update(ctx, updates); err != nil {
		return fmt.Errorf("update calculation state %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) GetCalculationState(ctx context.Context, id string) (models.CalculationState, error) {
	doc, err := s.client.Collection(collectionCalculations).Doc(id).Get(ctx)
	if err != nil {
		return models.CalculationState{}, fmt.Errorf("get calculation state %s: %w", id, err)
	}
	var state models.CalculationState
	if err := doc.DataTo(&state); err != nil {
		return models.CalculationState{}, fmt.Errorf("decode calculation state %s: %w", id, err)
	}
	state.ID = doc.Ref.ID
	return state, nil
}

// LatestCalculationState reads the single most recently started
// CalculationState, used to both check single-rebuild-at-a-time and
// detect stale non-terminal runs eligible for supersession. All reads in
// this method precede any write the caller may subsequently issue in the
// same logical operation, honoring the store's read-before-write rule.
func (s *FirestoreStore) LatestCalculationState(ctx context.Context) (*models.CalculationState, error) {
	iter := s.client.Collection(collectionCalculations).
		OrderBy("startedAt", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest calculation state: %w", err)
	}

	var state models.CalculationState
	if err := doc.DataTo(&state); err != nil {
		return nil, fmt.Errorf("decode calculation state %s: %w", doc.Ref.ID, err)
	}
	state.ID = doc.Ref.ID
	return &state, nil
}
