package config

import (
	"fmt"

	"github.com/arkado/chainwatch/pkg/detectors"
	"github.com/arkado/chainwatch/pkg/detectors/iforest"
	"github.com/arkado/chainwatch/pkg/detectors/kmeans"
	"github.com/arkado/chainwatch/pkg/detectors/mad"
	"github.com/arkado/chainwatch/pkg/detectors/zscore"
	"github.com/arkado/chainwatch/pkg/ensemble"
	"github.com/arkado/chainwatch/pkg/logging"
)

// BuildEnsemble constructs the configured detector roster and ensemble.
func BuildEnsemble(cfg *Config, log *logging.Logger) (*ensemble.Ensemble, error) {
	handles := make([]ensemble.Handle, 0, len(cfg.Detectors))
	for _, dc := range cfg.Detectors {
		det, err := buildDetector(dc)
		if err != nil {
			return nil, err
		}
		handles = append(handles, ensemble.Handle{ID: dc.ID, Detector: det})
	}

	opts := []ensemble.Option{
		ensemble.WithTimeout(cfg.Ensemble.DetectorTimeout),
		ensemble.WithSeed(cfg.Ensemble.Seed),
		ensemble.WithLogger(log),
	}

	policy := ensemble.Policy(cfg.Ensemble.Policy)
	if policy == ensemble.PolicyWeighted && cfg.Ensemble.Threshold != 0 {
		opts = append(opts, ensemble.WithThreshold(cfg.Ensemble.Threshold))
	}
	if policy == ensemble.PolicyQuorum && cfg.Ensemble.Quorum != 0 {
		opts = append(opts, ensemble.WithQuorum(cfg.Ensemble.Quorum))
	}
	if cfg.Ensemble.Objective == "cost" {
		opts = append(opts, ensemble.WithCostObjective(cfg.Ensemble.FPCost, cfg.Ensemble.FNCost))
	}

	return ensemble.New(policy, handles, opts...)
}

func buildDetector(dc DetectorConfig) (detectors.Detector, error) {
	switch dc.Type {
	case "iforest":
		opts := []iforest.Option{iforest.WithSeed(seedOrDefault(dc.Seed))}
		if dc.Trees > 0 {
			opts = append(opts, iforest.WithTrees(dc.Trees))
		}
		if dc.Contamination > 0 {
			opts = append(opts, iforest.WithContamination(dc.Contamination))
		}
		return iforest.New(opts...), nil
	case "zscore":
		if dc.Threshold > 0 {
			return zscore.New(zscore.WithThreshold(dc.Threshold)), nil
		}
		return zscore.New(), nil
	case "mad":
		if dc.Threshold > 0 {
			return mad.New(mad.WithThreshold(dc.Threshold)), nil
		}
		return mad.New(), nil
	case "kmeans":
		opts := []kmeans.Option{kmeans.WithSeed(seedOrDefault(dc.Seed))}
		if dc.Clusters > 0 {
			opts = append(opts, kmeans.WithClusters(dc.Clusters))
		}
		if dc.Contamination > 0 {
			opts = append(opts, kmeans.WithContamination(dc.Contamination))
		}
		return kmeans.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown detector type %q for id %q", dc.Type, dc.ID)
	}
}

func seedOrDefault(seed int64) int64 {
	if seed == 0 {
		return 42
	}
	return seed
}
