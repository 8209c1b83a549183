package config

const (
	defaultConfigPath             = "~/.config/spines/config.toml"
	defaultLibraryDir             = "~/spines/books"
	defaultDataDir                = "~/spines/data"
	defaultTempDir                = "~/spines/temp"
	defaultLogDir                 = "~/spines/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
	defaultAutoAcceptThreshold    = 0.7
	defaultOCRFloor               = 0.4
	defaultOCRCommitThreshold     = 0.5
	defaultMetadataTimeoutSeconds = 30
	defaultConvertTimeoutSeconds  = 60
	defaultOCRTimeoutSeconds      = 120
	defaultBasicMaxPages          = 15
	defaultBasicFirstPages        = 8
	defaultBasicLastPages         = 5
	defaultOCRFirstPages          = 7
	defaultOCRLastPages           = 3
	defaultOCRDPI                 = 300
	defaultOCRLanguage            = "eng"
	defaultTitleThreshold         = 0.85
	defaultAuthorThreshold        = 0.90
	defaultSimilarityMetric       = "ratio"
	defaultOpenLibraryURL         = "https://openlibrary.org"
	defaultGoogleBooksURL         = "https://www.googleapis.com/books/v1"
	defaultEnrichmentTimeout      = 10
	defaultEnrichmentRetries      = 2
	defaultOCRBatchSchedule       = "@every 6h"
	defaultLivenessSchedule       = "@every 30m"
	defaultTempCleanupSchedule    = "@daily"
	defaultNtfyTimeoutSeconds     = 10
)

// Provider names accepted in enrichment.providers.
const (
	ProviderOpenLibrary = "openlibrary"
	ProviderGoogleBooks = "googlebooks"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			TempDir:    defaultTempDir,
			LogDir:     defaultLogDir,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Extraction: Extraction{
			AutoAcceptThreshold:    defaultAutoAcceptThreshold,
			OCRFloor:               defaultOCRFloor,
			OCRCommitThreshold:     defaultOCRCommitThreshold,
			MetadataTimeoutSeconds: defaultMetadataTimeoutSeconds,
			ConvertTimeoutSeconds:  defaultConvertTimeoutSeconds,
			OCRTimeoutSeconds:      defaultOCRTimeoutSeconds,
			BasicMaxPages:          defaultBasicMaxPages,
			BasicFirstPages:        defaultBasicFirstPages,
			BasicLastPages:         defaultBasicLastPages,
			EbookMetaBinary:        "ebook-meta",
			EbookConvertBinary:     "ebook-convert",
			PdftotextBinary:        "pdftotext",
			PdftoppmBinary:         "pdftoppm",
			TesseractBinary:        "tesseract",
		},
		OCR: OCR{
			FirstPages: defaultOCRFirstPages,
			LastPages:  defaultOCRLastPages,
			DPI:        defaultOCRDPI,
			Language:   defaultOCRLanguage,
		},
		Similarity: Similarity{
			TitleThreshold:  defaultTitleThreshold,
			AuthorThreshold: defaultAuthorThreshold,
			Metric:          defaultSimilarityMetric,
		},
		Enrichment: Enrichment{
			Enabled:        true,
			Providers:      []string{ProviderOpenLibrary, ProviderGoogleBooks},
			OpenLibraryURL: defaultOpenLibraryURL,
			GoogleBooksURL: defaultGoogleBooksURL,
			TimeoutSeconds: defaultEnrichmentTimeout,
			RetryAttempts:  defaultEnrichmentRetries,
			Cache:          true,
		},
		Schedule: Schedule{
			OCRBatch:      defaultOCRBatchSchedule,
			LivenessCheck: defaultLivenessSchedule,
			TempCleanup:   defaultTempCleanupSchedule,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			ReviewNeeded:          true,
		},
	}
}
