package topics

// DefaultVocabulary returns the built-in topic table. Operators can replace
// it wholesale via configuration; the tagger never mutates it.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		"Machine Learning": {
			"machine learning", "neural network", "deep learning",
			"artificial intelligence", "ai", "classification", "regression",
			"supervised learning", "unsupervised learning",
		},
		"Bayesian Statistics": {
			"bayesian", "bayes", "mcmc", "posterior", "prior", "markov chain",
		},
		"Survival Analysis": {
			"survival", "hazard", "kaplan-meier", "cox", "time-to-event",
		},
		"Causal Inference": {
			"causal", "causality", "treatment effect", "propensity",
			"instrumental variable",
		},
		"High-Dimensional Statistics": {
			"high-dimensional", "sparse", "lasso", "ridge", "penalized",
			"regularization",
		},
		"Time Series": {
			"time series", "temporal", "forecasting", "autoregressive", "arima",
		},
		"Nonparametric Statistics": {
			"nonparametric", "kernel", "bandwidth", "smoothing",
		},
		"Computational Statistics": {
			"computational", "algorithm", "optimization", "simulation",
			"monte carlo",
		},
		"Biostatistics": {
			"biostatistics", "clinical trial", "medical", "epidemiology",
			"genetics",
		},
		"Econometrics": {
			"econometric", "economic", "panel data", "endogeneity",
		},
		"Statistical Learning": {
			"statistical learning", "cross-validation", "model selection",
			"prediction",
		},
		"Hypothesis Testing": {
			"testing", "p-value", "significance", "multiple testing",
		},
		"Experimental Design": {
			"experimental design", "randomization", "factorial",
			"design of experiments",
		},
	}
}
