package main

import (
	"context"

	"go-pubflow/internal/config"
	"go-pubflow/internal/database"
	"go-pubflow/internal/features/automation"
	"go-pubflow/internal/features/condition"
	"go-pubflow/internal/features/pub"
	"go-pubflow/internal/features/stage"
	"go-pubflow/internal/logger"
	"go-pubflow/internal/rank"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed loads a small demo workflow: three stages, a couple of pubs and two
// chained automations.
func Seed(
	lc fx.Lifecycle,
	stageRepo stage.StageRepository,
	pubRepo pub.PubRepository,
	automationRepo automation.AutomationRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("Seeding demo workflow...")

				existing, err := stageRepo.List(ctx)
				if err != nil {
					logger.Error("Failed to list stages", zap.Error(err))
					return
				}
				if len(existing) > 0 {
					logger.Info("Stages already exist, skipping seed")
					return
				}

				stageRanks, err := rank.Between("", "", 3)
				if err != nil {
					logger.Error("Failed to allocate stage ranks", zap.Error(err))
					return
				}
				names := []string{"Inbox", "Review", "Published"}
				stages := make([]stage.Stage, len(names))
				for i, name := range names {
					stages[i] = stage.Stage{Name: name, Rank: stageRanks[i]}
					if err := stageRepo.Create(ctx, &stages[i]); err != nil {
						logger.Error("Failed to create stage", zap.String("name", name), zap.Error(err))
						return
					}
				}

				pubs := []pub.Pub{
					{Title: "Launch announcement", StageID: stages[0].ID, Values: map[string]interface{}{"priority": 5, "author": "dana"}},
					{Title: "Quarterly digest", StageID: stages[0].ID, Values: map[string]interface{}{"priority": 2, "author": "sam"}},
				}
				for i := range pubs {
					if err := pubRepo.Create(ctx, &pubs[i]); err != nil {
						logger.Error("Failed to create pub", zap.Error(err))
						return
					}
				}

				// High-priority pubs entering Review get tagged for editors.
				root := condition.NewBlock(condition.BlockAnd, "")
				leafRank, _ := rank.Next("")
				leaf := condition.NewLeaf(`priority > 3`, leafRank)
				root.Items = []condition.Item{leaf}

				autoRanks, err := rank.Between("", "", 2)
				if err != nil {
					logger.Error("Failed to allocate automation ranks", zap.Error(err))
					return
				}

				tag := automation.AutomationDefinition{
					StageID: stages[1].ID,
					Name:    "Tag urgent reviews",
					Rank:    autoRanks[0],
					Triggers: []automation.Trigger{
						{ID: primitive.NewObjectID(), Event: automation.EventPubEnteredStage},
					},
					Condition:       &root,
					ConditionTiming: automation.TimingOnTrigger,
					Action: automation.ActionInvocation{
						Action: "update_field",
						Config: map[string]interface{}{"field": "urgent", "value": true},
					},
				}
				if err := automationRepo.Create(ctx, &tag); err != nil {
					logger.Error("Failed to create automation", zap.Error(err))
					return
				}

				notify := automation.AutomationDefinition{
					StageID: stages[1].ID,
					Name:    "Note after tagging",
					Rank:    autoRanks[1],
					Triggers: []automation.Trigger{
						{ID: primitive.NewObjectID(), Event: automation.EventAutomationSucceeded, SourceAutomationID: &tag.ID},
					},
					ConditionTiming: automation.TimingOnTrigger,
					Action: automation.ActionInvocation{
						Action: "note",
						Config: map[string]interface{}{"message": "{{pub}} was tagged urgent"},
					},
				}
				if err := automationRepo.Create(ctx, &notify); err != nil {
					logger.Error("Failed to create automation", zap.Error(err))
					return
				}

				logger.Info("Seeding complete",
					zap.Int("stages", len(stages)),
					zap.Int("pubs", len(pubs)),
					zap.Int("automations", 2))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,

			stage.NewStageRepository,
			pub.NewPubRepository,
			automation.NewAutomationRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
