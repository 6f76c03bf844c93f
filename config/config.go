package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// AppConfig holds the application-level configuration
type AppConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	ReceiveDir  string `mapstructure:"receive_dir"`
	HistoryPath string `mapstructure:"history_path"`
	Debug       bool   `mapstructure:"debug"`
}

var Config *AppConfig

func LoadConfig(path string) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	viper.SetDefault("host", "localhost")
	viper.SetDefault("port", 8888)
	viper.SetDefault("receive_dir", "received_files")
	viper.SetDefault("history_path", "./data/history")
	viper.SetDefault("debug", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("⚠️ Could not read config file, using defaults: %v", err)
	}

	var appConfig AppConfig
	if err := viper.Unmarshal(&appConfig); err != nil {
		log.Fatalf("❌ Unable to decode config into struct: %v", err)
	}

	Config = &appConfig

	fmt.Println("✅ Configuration loaded successfully.")
}
