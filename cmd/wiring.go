package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sfn"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/config"
	"github.com/kozaktomas/snaprace/internal/pipeline"
	"github.com/kozaktomas/snaprace/internal/recognition"
	"github.com/kozaktomas/snaprace/internal/search"
	"github.com/kozaktomas/snaprace/internal/storage"
	"github.com/kozaktomas/snaprace/internal/store"
	"github.com/kozaktomas/snaprace/internal/store/dynamo"
	"github.com/kozaktomas/snaprace/internal/store/sqlite"
	"github.com/kozaktomas/snaprace/internal/workflow"
)

// app holds the clients and services built from one configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	aws     aws.Config
	store   store.Store
	gateway *recognition.Gateway
	objects *storage.Client
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, aws: awsCfg}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	a.gateway = recognition.NewGateway(rekognition.NewFromConfig(awsCfg), recognition.Options{
		CollectionPrefix: cfg.Recognition.CollectionPrefix,
		MaxRetries:       cfg.Recognition.MaxRetries,
		BaseDelay:        cfg.Recognition.RetryBaseDelay,
		Logger:           logger,
	})
	a.objects = storage.New(s3.NewFromConfig(awsCfg), logger)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case config.BackendDynamoDB, "":
		a.store = dynamo.New(dynamo.NewClient(a.aws, a.cfg.AWS.DynamoDBEndpoint), dynamo.Options{
			Tables: dynamo.Tables{
				Photos:   a.cfg.Tables.Photos,
				BibIndex: a.cfg.Tables.BibIndex,
				Runners:  a.cfg.Tables.Runners,
			},
			BibPadWidth: a.cfg.Bib.RosterPadWidth,
		})
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, sqlite.Options{
			Path:        a.cfg.Store.SQLitePath,
			Roster:      a.cfg.RosterEnabled(),
			BibPadWidth: a.cfg.Bib.RosterPadWidth,
		})
		if err != nil {
			return err
		}
		a.store = db
		a.closers = append(a.closers, db.Close)
	default:
		return fmt.Errorf("unsupported store backend %q", a.cfg.Store.Backend)
	}
	a.logger.Debug("store opened", "backend", a.cfg.Store.Backend)
	return nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// roster returns nil when no runners table is configured.
func (a *app) roster() store.Roster {
	if !a.cfg.RosterEnabled() {
		return nil
	}
	return a.store
}

func (a *app) bibConfig() bib.Config {
	return bib.Config{
		Min:                    a.cfg.Bib.Min,
		Max:                    a.cfg.Bib.Max,
		MinConfidence:          a.cfg.Bib.MinConfidence,
		WatermarkFilterEnabled: a.cfg.Bib.WatermarkFilterEnabled,
		WatermarkAreaThreshold: a.cfg.Bib.WatermarkAreaThreshold,
	}
}

func (a *app) detectText() *pipeline.DetectText {
	opts := pipeline.DetectTextOptions{
		Photos:     a.store,
		Index:      a.store,
		Text:       a.gateway,
		Dimensions: a.objects,
		Bib:        a.bibConfig(),
		Logger:     a.logger,
	}
	if r := a.roster(); r != nil {
		opts.Roster = r
	}
	return pipeline.NewDetectText(opts)
}

func (a *app) indexFaces() *pipeline.IndexFaces {
	return pipeline.NewIndexFaces(pipeline.IndexFacesOptions{
		Photos:   a.store,
		Faces:    a.gateway,
		MaxFaces: a.cfg.Recognition.MaxFacesPerPhoto,
		Logger:   a.logger,
	})
}

func (a *app) dbUpdate() *pipeline.DBUpdate {
	return pipeline.NewDBUpdate(pipeline.DBUpdateOptions{
		Photos: a.store,
		Roster: a.roster(),
		Logger: a.logger,
	})
}

func (a *app) pipeline() *pipeline.Pipeline {
	return &pipeline.Pipeline{
		DetectText: a.detectText(),
		IndexFaces: a.indexFaces(),
		DBUpdate:   a.dbUpdate(),
	}
}

// workflow picks the Step Functions starter or the in-process runner.
func (a *app) workflow(mode string) (workflow.Starter, error) {
	switch mode {
	case config.WorkflowStepFunctions, "":
		if a.cfg.Workflow.StateMachineARN == "" {
			return nil, fmt.Errorf("%s is required in %s workflow mode", config.EnvStateMachineARN, config.WorkflowStepFunctions)
		}
		return workflow.NewStepFunctions(sfn.NewFromConfig(a.aws), a.cfg.Workflow.StateMachineARN), nil
	case config.WorkflowLocal:
		return workflow.NewLocal(a.pipeline().RunFunc(), a.logger), nil
	default:
		return nil, fmt.Errorf("unsupported workflow mode %q", mode)
	}
}

func (a *app) starter(mode string) (*pipeline.Starter, error) {
	wf, err := a.workflow(mode)
	if err != nil {
		return nil, err
	}
	return pipeline.NewStarter(a.store, wf, a.logger), nil
}

func (a *app) bibSearcher() *search.BibSearcher {
	return search.NewBibSearcher(a.store, a.roster(), a.logger)
}

func (a *app) selfieSearcher() *search.SelfieSearcher {
	return search.NewSelfieSearcher(search.SelfieOptions{
		Faces:      a.gateway,
		CDNBaseURL: a.cfg.Search.CDNBaseURL,
		MaxFaces:   a.cfg.Recognition.SelfieMaxFaces,
		Threshold:  a.cfg.Recognition.MinFaceConfidence,
		Logger:     a.logger,
	})
}

// bucket resolves the --bucket flag against PHOTOS_BUCKET.
func (a *app) bucket(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.Tables.PhotosBucket == "" {
		return "", fmt.Errorf("--bucket or %s is required", config.EnvPhotosBucket)
	}
	return a.cfg.Tables.PhotosBucket, nil
}
