// Package main provides the entry point for the voxlate CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/voxlate/internal/cache"
	"github.com/dgnsrekt/voxlate/internal/lang"
	"github.com/dgnsrekt/voxlate/pipeline"
	"github.com/dgnsrekt/voxlate/pipeline/audio"
	"github.com/dgnsrekt/voxlate/pipeline/remote"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	sourceLang   string
	targetLang   string
	speak        bool
	voiceGender  string
	speakingRate float64
	apiURL       string
	debug        bool

	rootCmd = &cobra.Command{
		Use:   "voxlate [TEXT]",
		Short: "Translate text between languages, with speech",
		Long: "\nTranslate text between twelve languages, synthesize the result as speech,\n" +
			"and keep working offline through the local cache.",
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	sourceLang = viper.GetString("source")
	targetLang = viper.GetString("target")
	speak = viper.GetBool("speak")
	voiceGender = viper.GetString("voice.gender")
	speakingRate = viper.GetFloat64("voice.rate")
	apiURL = viper.GetString("api.url")
	debug = viper.GetBool("debug")

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if cmd.Flags().Changed("from") {
		sourceLang, _ = cmd.Flags().GetString("from")
	}
	if cmd.Flags().Changed("to") {
		targetLang, _ = cmd.Flags().GetString("to")
	}

	if sourceLang != "" && !lang.IsSupported(lang.Normalize(sourceLang)) {
		return fmt.Errorf("unsupported source language %q (see 'voxlate languages')", sourceLang)
	}
	if !lang.IsSupported(lang.Normalize(targetLang)) {
		return fmt.Errorf("unsupported target language %q (see 'voxlate languages')", targetLang)
	}

	switch voiceGender {
	case "male", "female", "neutral":
	default:
		return fmt.Errorf("voice gender must be male, female or neutral, got %q", voiceGender)
	}

	// The backend clamps to this range; reject early instead.
	if speakingRate < 0.5 || speakingRate > 2.0 {
		return fmt.Errorf("speaking rate must be between 0.5 and 2.0, got %.2f", speakingRate)
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// inputText resolves the text to translate from args or a stdin pipe.
func inputText(args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	if yes, err := stdinIsPipe(); err != nil {
		return "", err
	} else if !yes && !(len(args) == 1 && args[0] == "-") {
		return "", errors.New("no text to translate: pass it as an argument or pipe it in")
	}

	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read stdin: %w", err)
	}
	return string(b), nil
}

func execute(cmd *cobra.Command, args []string) error {
	text, err := inputText(args)
	if err != nil {
		return err
	}

	source := lang.Normalize(sourceLang)
	if source == "" {
		source = lang.Detect(text)
		log.Debug("detected source language", "language", source)
	}
	target := lang.Normalize(targetLang)

	orchestrator, cleanup, err := buildPipeline()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := orchestrator.ProcessTextTranslation(cmd.Context(), text, source, target)
	if err != nil {
		return err
	}

	printResult(os.Stdout, result)
	return nil
}

func printResult(w io.Writer, result *pipeline.Result) {
	t := result.Translation
	fmt.Fprintln(w, t.TranslatedText)

	if debug {
		fmt.Fprintf(w, "\n%s -> %s  confidence %.2f  %s",
			lang.DisplayName(t.SourceLanguage), lang.DisplayName(t.TargetLanguage),
			t.Confidence, result.ProcessingTime.Round(time.Millisecond))
		if t.Degraded {
			fmt.Fprint(w, "  (offline fallback)")
		}
		if result.AudioPlayed {
			fmt.Fprint(w, "  [spoken]")
		}
		fmt.Fprintln(w)
	}
}

// buildPipeline assembles the cache, remote client and pipeline components
// from config. The returned cleanup persists the cache index.
func buildPipeline() (*pipeline.Orchestrator, func(), error) {
	config, err := loadPipelineConfig()
	if err != nil {
		return nil, nil, err
	}

	cacheManager, err := cache.New(config.Cache, log.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open cache: %w", err)
	}

	remoteConfig := remote.DefaultConfig()
	if err := env.Parse(&remoteConfig); err != nil {
		return nil, nil, fmt.Errorf("unable to parse environment: %w", err)
	}
	if apiURL != "" {
		remoteConfig.BaseURL = apiURL
	}

	boundary := remote.NewClient(remoteConfig, apiKeyProvider(), log.Default())
	chain := pipeline.NewDegradationChain(cacheManager, log.Default())

	config.Voice = pipeline.VoiceParams{Gender: voiceGender, SpeakingRate: speakingRate}

	var player pipeline.Player
	if speak {
		player = audio.NewManager(audio.DefaultConfig(), log.Default())
	} else {
		player = noopPlayer{}
	}

	deps := pipeline.Deps{
		Translator:  pipeline.NewTranslator(boundary, cacheManager, chain, config, log.Default()),
		Synthesizer: pipeline.NewSynthesizer(boundary, cacheManager, chain, config, log.Default()),
		Player:      player,
		Cache:       cacheManager,
	}

	orchestrator := pipeline.NewOrchestrator(deps, config, log.Default())
	cleanup := func() {
		if err := cacheManager.Close(); err != nil {
			log.Warn("closing cache", "err", err)
		}
	}
	return orchestrator, cleanup, nil
}

func loadPipelineConfig() (pipeline.Config, error) {
	config := pipeline.DefaultConfig()
	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("unable to parse environment: %w", err)
	}

	if dir := viper.GetString("cache.dir"); dir != "" {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return config, fmt.Errorf("unable to expand cache dir: %w", err)
		}
		config.Cache.DiskPath = expanded
	}
	if capacity := viper.GetInt64("cache.disk_capacity"); capacity > 0 {
		config.Cache.DiskCapacity = capacity
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// apiKeyProvider reads the key lazily so offline commands never require it.
func apiKeyProvider() remote.CredentialProvider {
	return func() (string, error) {
		if key := os.Getenv("VOXLATE_API_KEY"); key != "" {
			return key, nil
		}
		if key := viper.GetString("api.key"); key != "" {
			return key, nil
		}
		return "", errors.New("no API key: set VOXLATE_API_KEY or api.key in the config file")
	}
}

// noopPlayer is used when --speak is off; synthesized audio is cached but
// not played.
type noopPlayer struct{}

func (noopPlayer) Play(context.Context, []byte) bool { return false }
func (noopPlayer) Stop()                             {}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		languages := supportedLanguages(cmd.Context())
		for _, l := range languages {
			fmt.Printf("%-6s %s\n", l.Code, l.Name)
		}
		return nil
	},
}

// supportedLanguages asks the backend, falling back to the static table when
// it is unreachable.
func supportedLanguages(ctx context.Context) []lang.Language {
	if apiURL != "" {
		client := remote.NewClient(remote.Config{BaseURL: apiURL}, nil, log.Default())
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if languages, err := client.Languages(probeCtx); err == nil && len(languages) > 0 {
			return languages
		}
		log.Debug("language listing unavailable from backend, using static table")
	}
	return lang.Supported()
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the translation backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if apiURL == "" {
			return errors.New("no backend configured: set --api-url or api.url in the config file")
		}

		client := remote.NewClient(remote.Config{BaseURL: apiURL}, nil, log.Default())
		probeCtx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		defer cancel()

		if err := client.Health(probeCtx); err != nil {
			return fmt.Errorf("backend unhealthy: %w", err)
		}
		fmt.Println("Backend is healthy.")
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the translation cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache counters and disk usage",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		manager, config, cleanup, err := openCache()
		if err != nil {
			return err
		}
		defer cleanup()

		stats := manager.Stats()
		fmt.Printf("entries:   %d translations, %d audio clips in memory, %d on disk\n",
			stats.FastTranslations, stats.FastAudio, stats.DurableItems)
		fmt.Printf("disk:      %s of %s\n",
			humanize.Bytes(uint64(manager.DiskSize())), humanize.Bytes(uint64(config.Cache.DiskCapacity)))
		fmt.Printf("hits:      %d (%.0f%% hit rate, %d promoted from disk)\n",
			stats.Hits, stats.HitRate()*100, stats.Promotions)
		fmt.Printf("misses:    %d (%d expired)\n", stats.Misses, stats.Expirations)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached translation and audio clip",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		manager, _, cleanup, err := openCache()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := manager.Clear(); err != nil {
			return fmt.Errorf("unable to clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

func openCache() (*cache.Manager, pipeline.Config, func(), error) {
	config, err := loadPipelineConfig()
	if err != nil {
		return nil, config, nil, err
	}
	manager, err := cache.New(config.Cache, log.Default())
	if err != nil {
		return nil, config, nil, fmt.Errorf("unable to open cache: %w", err)
	}
	return manager, config, func() { _ = manager.Close() }, nil
}

func setupLog() {
	log.SetReportTimestamp(false)
	log.SetOutput(os.Stderr)
	if os.Getenv("VOXLATE_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}
}

func main() {
	setupLog()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&sourceLang, "from", "f", "", "source language code (auto-detected when empty)")
	rootCmd.Flags().StringVarP(&targetLang, "to", "t", "en", "target language code")
	rootCmd.Flags().BoolVarP(&speak, "speak", "s", false, "speak the translation aloud")
	rootCmd.Flags().StringVar(&voiceGender, "voice", "neutral", "voice gender: male, female or neutral")
	rootCmd.Flags().Float64Var(&speakingRate, "rate", 1.0, "speaking rate (0.5 to 2.0)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "translation backend URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging and result metadata")

	_ = viper.BindPFlag("source", rootCmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("target", rootCmd.Flags().Lookup("to"))
	_ = viper.BindPFlag("speak", rootCmd.Flags().Lookup("speak"))
	_ = viper.BindPFlag("voice.gender", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("voice.rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("target", "en")
	viper.SetDefault("voice.gender", "neutral")
	viper.SetDefault("voice.rate", 1.0)
	viper.SetDefault("cache.disk_capacity", 64*1024*1024)

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(configCmd, languagesCmd, cacheCmd, healthCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voxlate")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voxlate")}, dirs...)
	}

	if c := os.Getenv("VOXLATE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voxlate")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voxlate")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "voxlate.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
