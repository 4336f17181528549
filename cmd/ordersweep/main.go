package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/restockops/ordersweep/internal/api"
	"github.com/restockops/ordersweep/internal/discord"
	"github.com/restockops/ordersweep/internal/models"
	"github.com/restockops/ordersweep/internal/util"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if *flags.token == "" {
		slog.Error("No Discord bot token configured; set DISCORD_BOT_TOKEN or pass -token")
		os.Exit(1)
	}

	discordOpts := buildDiscordOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping ordersweep", "api_addr", *flags.apiAddr, "default_limit", *flags.defaultLimit)
	if err := api.Run(discordOpts, apiOpts); err != nil {
		slog.Error("ordersweep failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("ordersweep exited successfully")
}

// Config holds environment configuration
type Config struct {
	Token           string
	APIAddr         string
	DefaultLimit    int
	CommandGuild    string
	DisableCommands bool
	AllowedOrigins  string
}

// Flags holds command line flag values
type Flags struct {
	token           *string
	apiAddr         *string
	defaultLimit    *int
	requestTimeout  *time.Duration
	commandGuild    *string
	disableCommands *bool
	allowedOrigins  *string
}

// initializeLogger sets up structured logging
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		Token:           os.Getenv("DISCORD_BOT_TOKEN"),
		APIAddr:         os.Getenv("API_ADDR"),
		DefaultLimit:    util.ParseIntEnv("DEFAULT_LIMIT", models.DefaultScanLimit),
		CommandGuild:    os.Getenv("COMMAND_GUILD_ID"),
		DisableCommands: util.ParseBoolEnv("DISABLE_COMMANDS", false),
		AllowedOrigins:  os.Getenv("ALLOWED_ORIGINS"),
	}

	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
		slog.Debug("No API_ADDR set, using default", "default_addr", config.APIAddr)
	}

	slog.Debug("environment variables loaded",
		"DISCORD_BOT_TOKEN_SET", config.Token != "",
		"API_ADDR", config.APIAddr,
		"DEFAULT_LIMIT", config.DefaultLimit,
		"COMMAND_GUILD_ID", config.CommandGuild,
		"DISABLE_COMMANDS", config.DisableCommands,
		"ALLOWED_ORIGINS", config.AllowedOrigins)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		token:           flag.String("token", config.Token, "Discord bot token (overrides $DISCORD_BOT_TOKEN)"),
		apiAddr:         flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		defaultLimit:    flag.Int("default-limit", config.DefaultLimit, "default number of messages to scan per request (overrides $DEFAULT_LIMIT)"),
		requestTimeout:  flag.Duration("request-timeout", api.DefaultRequestTimeout, "time budget for one search-and-delete operation"),
		commandGuild:    flag.String("command-guild", config.CommandGuild, "guild ID for slash command registration (overrides $COMMAND_GUILD_ID)"),
		disableCommands: flag.Bool("disable-commands", config.DisableCommands, "skip slash command registration (overrides $DISABLE_COMMANDS)"),
		allowedOrigins:  flag.String("allowed-origins", config.AllowedOrigins, "comma-separated CORS origins (overrides $ALLOWED_ORIGINS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"token_set", *flags.token != "",
		"apiAddr", *flags.apiAddr,
		"defaultLimit", *flags.defaultLimit,
		"requestTimeout", *flags.requestTimeout,
		"commandGuild", *flags.commandGuild,
		"disableCommands", *flags.disableCommands,
		"allowedOrigins", *flags.allowedOrigins)

	return flags
}

// buildDiscordOptions constructs Discord client configuration options
func buildDiscordOptions(flags Flags) []discord.Option {
	discordOpts := []discord.Option{discord.WithToken(*flags.token)}
	if *flags.commandGuild != "" {
		discordOpts = append(discordOpts, discord.WithCommandGuild(*flags.commandGuild))
	}
	if *flags.disableCommands {
		discordOpts = append(discordOpts, discord.WithoutCommands())
	}
	return discordOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.defaultLimit > 0 {
		apiOpts = append(apiOpts, api.WithDefaultLimit(*flags.defaultLimit))
	}
	if *flags.requestTimeout > 0 {
		apiOpts = append(apiOpts, api.WithRequestTimeout(*flags.requestTimeout))
	}
	if *flags.allowedOrigins != "" {
		origins := strings.Split(*flags.allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		apiOpts = append(apiOpts, api.WithCORSOrigins(origins))
	}
	return apiOpts
}
