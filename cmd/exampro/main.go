package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/exampro/internal/grading"
	"github.com/pavelanni/exampro/internal/handler"
	appI18n "github.com/pavelanni/exampro/internal/i18n"
	"github.com/pavelanni/exampro/internal/metrics"
	"github.com/pavelanni/exampro/internal/model"
	"github.com/pavelanni/exampro/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "exampro",
		Short:        "Exam grading server for three-part school exams",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, gradeCmd(), importCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `exampro --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addScoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("max-score", grading.DefaultMaxScore, "Score scale reported with every result")
	f.Bool("clamp-score", false, "Cap reported scores at --max-score (the raw score is always kept)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "exampro.db", "SQLite database path")
	f.StringSlice("exams", nil, "Exam JSON files imported at start (repeatable)")
	f.StringP("lang", "l", "vi", "Default UI language (vi, en)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /exam)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("teacher-password", "", "Teacher password (or set EXAMPRO_TEACHER_PASSWORD)")
	addScoreFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade one answers file against an exam file and print the result",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.String("exam", "", "Exam JSON file (required)")
	f.String("answers", "", "Student answers JSON file (required)")
	addScoreFlags(cmd)
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("exam")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import exam JSON files into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	cmd.Flags().String("db", "exampro.db", "SQLite database path")
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "exampro.db", "SQLite database path")
	f.String("exam-id", "", "Only export results of this exam")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMPRO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("exampro")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/exampro")
	v.AddConfigPath("/etc/exampro")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func engineFromConfig(v *viper.Viper) *grading.Engine {
	return grading.New(
		grading.WithMaxScore(v.GetFloat64("max-score")),
		grading.WithClamp(v.GetBool("clamp-score")),
	)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedTeacherPassword(db, v.GetString("teacher-password")); err != nil {
		return fmt.Errorf("seed teacher password: %w", err)
	}

	if err := importExams(db, v.GetStringSlice("exams")); err != nil {
		return fmt.Errorf("import exams: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	metrics.Init()

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	engine := engineFromConfig(v)
	h := handler.New(db, engine, model.ServerConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(appI18n.Middleware)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Group(func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cleanupSessions(ctx, db, time.Hour)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	policy := engine.Policy()
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"max_score", policy.MaxScore,
		"clamp_score", policy.Clamp,
		"base_path", basePath,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// cleanupSessions purges expired teacher sessions until ctx is cancelled.
func cleanupSessions(ctx context.Context, db *store.Store, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.CleanupExpiredSessions(); err != nil {
				slog.Error("failed to clean up sessions", "error", err)
			}
		}
	}
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	data, err := os.ReadFile(v.GetString("exam"))
	if err != nil {
		return fmt.Errorf("read exam: %w", err)
	}
	var exam model.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return fmt.Errorf("parse exam: %w", err)
	}
	if err := model.ValidateExam(exam); err != nil {
		return err
	}

	data, err = os.ReadFile(v.GetString("answers"))
	if err != nil {
		return fmt.Errorf("read answers: %w", err)
	}
	var answers model.StudentAnswers
	if err := json.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("parse answers: %w", err)
	}

	res := engineFromConfig(v).Grade(exam, answers)
	if res.ExceedsScale {
		slog.Warn("score exceeds scale", "raw_score", res.RawScore, "max_score", res.MaxScore)
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return importExams(db, args)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := buildExport(db, v.GetString("exam-id"))
	if err != nil {
		return err
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := writeJSON(w, export); err != nil {
		return err
	}
	slog.Info("exported results", "count", len(export.Results), "output", outPath)
	return nil
}

// buildExport collects results, optionally for one exam, with per-exam stats.
func buildExport(db *store.Store, examID string) (model.ResultsExport, error) {
	export := model.ResultsExport{
		ExamID:     examID,
		ExportedAt: time.Now().UnixMilli(),
		MaxScore:   grading.DefaultMaxScore,
	}

	var results []model.StoredResult
	if examID != "" {
		exam, err := db.GetExam(examID)
		if err != nil {
			return export, fmt.Errorf("get exam: %w", err)
		}
		if exam == nil {
			return export, fmt.Errorf("exam %q not found", examID)
		}
		export.Exams = []model.ExamSummary{exam.Summary()}
		if results, err = db.ResultsByExam(examID); err != nil {
			return export, fmt.Errorf("list results: %w", err)
		}
	} else {
		exams, err := db.ListExams()
		if err != nil {
			return export, fmt.Errorf("list exams: %w", err)
		}
		for _, e := range exams {
			export.Exams = append(export.Exams, e.Summary())
		}
		if results, err = db.ListResults(); err != nil {
			return export, fmt.Errorf("list results: %w", err)
		}
	}

	if len(results) > 0 {
		export.MaxScore = results[0].Result.MaxScore
	}
	export.Results = results
	if export.Results == nil {
		export.Results = []model.StoredResult{}
	}
	export.Stats = model.ComputeStats(results)
	if export.Exams == nil {
		export.Exams = []model.ExamSummary{}
	}
	if export.Stats == nil {
		export.Stats = []model.ExamStats{}
	}
	return export, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func importExams(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := db.ImportExamFile(path, data); err != nil {
			return err
		}
	}
	return nil
}

// seedTeacherPassword stores the bcrypt hash of password. An empty password
// keeps the stored hash; with neither, the server refuses to start.
func seedTeacherPassword(db *store.Store, password string) error {
	stored, err := db.GetMetadata(model.MetaTeacherPasswordHash)
	if err != nil {
		return err
	}
	if password == "" {
		if stored == "" {
			return fmt.Errorf("teacher password is required: set --teacher-password flag or EXAMPRO_TEACHER_PASSWORD env var")
		}
		return nil
	}
	if stored != "" && bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash teacher password: %w", err)
	}
	if err := db.SetMetadata(model.MetaTeacherPasswordHash, string(hash)); err != nil {
		return fmt.Errorf("store teacher password: %w", err)
	}

	slog.Info("teacher password updated")
	return nil
}
