package rest

import (
	"context"
	"net/http"
	"time"
)

type ExperimentParams struct {
	Name        string
	DataSource  map[string]any
	Label       string
	ModelType   string
	Description string
}

const defaultModelType = "CLASSIFICATION"

// ExperimentTrain kicks off a server-side training experiment.
func (s *Session) ExperimentTrain(ctx context.Context, p ExperimentParams) (map[string]any, error) {
	modelType := p.ModelType
	if modelType == "" {
		modelType = defaultModelType
	}

	out := map[string]any{}
	err := s.Do(
		ctx, http.MethodPost, "model/exp_train", &out,
		WithJSONBody(map[string]any{
			"model_name":  p.Name,
			"data_source": p.DataSource,
			"label":       p.Label,
			"model_type":  modelType,
			"description": p.Description,
		}),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) ExperimentStatus(ctx context.Context, name string) (map[string]any, error) {
	out := map[string]any{}
	if err := s.Do(ctx, http.MethodGet, "model/exp_train/"+name, &out); err != nil {
		return nil, err
	}
	return out, nil
}

const experimentPollInterval = 3 * time.Second

// ExperimentWait polls the experiment until it leaves IN_PROGRESS.
func (s *Session) ExperimentWait(ctx context.Context, name string) (map[string]any, error) {
	for {
		status, err := s.ExperimentStatus(ctx, name)
		if err != nil {
			return nil, err
		}
		if state, _ := status["status"].(string); state != "IN_PROGRESS" {
			return status, nil
		}

		t := time.NewTimer(experimentPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
