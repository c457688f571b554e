package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"farmbeats-monitor/config"
	"farmbeats-monitor/internal/api"
	"farmbeats-monitor/internal/collector"
	"farmbeats-monitor/internal/dashboard"
	"farmbeats-monitor/internal/device"
	"farmbeats-monitor/internal/metrics"
	"farmbeats-monitor/internal/modbus"
	"farmbeats-monitor/internal/mqtt"
	"farmbeats-monitor/internal/simulation"
	"farmbeats-monitor/internal/storage"
	"farmbeats-monitor/internal/weather"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "farmbeats-monitor",
		Short: "FarmBeats solar edge simulator",
		Long:  "Simulates how weather drives a solar-powered farm edge node's battery, solar input and operating mode",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(seriesCmd())
	rootCmd.AddCommand(readCmd())
	rootCmd.AddCommand(testCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the simulation service",
		Long:  "Start the collector, API server, MQTT publisher and simulated device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			condition, err := cfg.Simulation.InitialCondition()
			if err != nil {
				return err
			}

			metrics.Init()

			db, err := storage.NewDatabase(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			log.Printf("Database opened at %s", cfg.Database.Path)

			var sink collector.Sink
			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
			})
			if err != nil {
				log.Printf("Warning: MQTT connection failed: %v", err)
			} else {
				sink = publisher
				if cfg.MQTT.Enabled {
					log.Printf("MQTT connected to %s", cfg.MQTT.Broker)
					if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
						log.Printf("Warning: Home Assistant discovery failed: %v", err)
					}
				}
			}

			provider, err := weather.NewProvider(cfg.Weather)
			if err != nil {
				log.Printf("Warning: weather provider unavailable: %v", err)
			}
			if cfg.Simulation.Source == config.SourceLive && provider == nil {
				log.Println("Warning: live source configured without a weather provider, using manual selection")
			}

			coll := collector.NewCollector(collector.CollectorConfig{
				Database:  db,
				Publisher: sink,
				Weather:   provider,
				Source:    cfg.Simulation.Source,
				Condition: condition,
				Interval:  cfg.Simulation.Interval,
				Enabled:   cfg.Simulation.Enabled,
			})

			var dev *device.Device
			if cfg.Device.Enabled {
				dev = device.NewDevice(coll)
				coll.SetDevice(dev)
				if err := dev.Start(cfg.Device.Host, cfg.Device.Port, cfg.Device.Timeout); err != nil {
					log.Printf("Warning: simulated device not started: %v", err)
					dev = nil
				}
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				if err := coll.Start(ctx); err != nil {
					log.Printf("Collector error: %v", err)
				}
			}()

			if cfg.Database.Retention > 0 {
				go pruneSnapshots(ctx, db, cfg.Database.Retention)
			}

			var server *api.Server
			if cfg.API.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:       cfg.API.Port,
					Collector:  coll,
					Database:   db,
					Planner:    dashboard.NewDronePlanner(cfg.Simulation.DroneDelay),
					Config:     cfg,
					ConfigPath: configFile,
				})

				go func() {
					if err := server.Start(); err != nil {
						log.Printf("API server error: %v", err)
					}
				}()
			}

			log.Printf("FarmBeats Monitor started for %s (condition=%s). Press Ctrl+C to stop.", cfg.Simulation.FarmName, condition)

			<-sigChan
			log.Println("Shutting down...")
			cancel()

			if server != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := server.Stop(shutdownCtx); err != nil {
					log.Printf("API server shutdown error: %v", err)
				}
				shutdownCancel()
			}
			if dev != nil {
				if err := dev.Stop(); err != nil {
					log.Printf("Device shutdown error: %v", err)
				}
			}
			coll.Stop()

			return nil
		},
	}
}

func pruneSnapshots(ctx context.Context, db *storage.Database, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := db.CleanOldSnapshots(retention)
			if err != nil {
				log.Printf("Error pruning snapshots: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("Pruned %d snapshots older than %s", removed, retention)
			}
		}
	}
}

func resolveCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "resolve <condition>",
		Short: "Print the derived metrics for a weather condition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			condition, err := simulation.ParseCondition(args[0])
			if err != nil {
				return err
			}

			m, err := simulation.Resolve(condition)
			if err != nil {
				return err
			}

			var out []byte
			switch output {
			case "json":
				out, err = json.MarshalIndent(m, "", "  ")
			case "yaml":
				out, err = yaml.Marshal(m)
			default:
				return fmt.Errorf("unsupported output format %q (json, yaml)", output)
			}
			if err != nil {
				return err
			}
			fmt.Println(strings.TrimRight(string(out), "\n"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func seriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "series <condition>",
		Short: "Print the 24-hour energy series for a weather condition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			condition, err := simulation.ParseCondition(args[0])
			if err != nil {
				return err
			}

			series, err := simulation.GenerateEnergySeries(condition)
			if err != nil {
				return err
			}

			fmt.Printf("Energy series (%s):\n", condition)
			fmt.Printf("  Hour  Energy\n")
			for h, v := range series {
				fmt.Printf("  %4d  %6.1f\n", h, v)
			}
			return nil
		},
	}
}

func newDeviceClient(cfg *config.Config) *modbus.Client {
	return modbus.NewClient(
		cfg.Device.Host,
		cfg.Device.Port,
		cfg.Device.SlaveID,
		cfg.Device.Timeout,
	)
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Read data once from the simulated device",
		Long:  "Connect to the simulated device over Modbus TCP and print its decoded registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			client := newDeviceClient(cfg)
			if err := client.Connect(); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer client.Close()

			reading, err := device.Read(client)
			if err != nil {
				return fmt.Errorf("failed to read data: %w", err)
			}
			reading.Timestamp = time.Now()

			output, _ := json.MarshalIndent(reading, "", "  ")
			fmt.Println(string(output))

			return nil
		},
	}
}

func testCmd() *cobra.Command {
	var selectFlag string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test connection to the simulated device",
		Long:  "Test the Modbus TCP connection to the simulated device, optionally selecting a condition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Printf("Testing connection to %s:%d...\n", cfg.Device.Host, cfg.Device.Port)

			client := newDeviceClient(cfg)
			if err := client.Connect(); err != nil {
				fmt.Printf("Connection FAILED: %v\n", err)
				return err
			}
			defer client.Close()

			if selectFlag != "" {
				condition, err := simulation.ParseCondition(selectFlag)
				if err != nil {
					return err
				}
				if err := client.WriteHoldingRegister(device.RegSelectedCondition, uint16(condition)); err != nil {
					return fmt.Errorf("failed to select %s: %w", condition, err)
				}
				fmt.Printf("Selected %s\n", condition)
			}

			regs, err := client.ReadHoldingRegisters(device.RegSelectedCondition, 1)
			if err != nil {
				fmt.Printf("Connection FAILED: %v\n", err)
				return err
			}
			fmt.Println("Connection SUCCESS!")

			reading, err := device.Read(client)
			if err != nil {
				fmt.Printf("Warning: Could not read data: %v\n", err)
				return nil
			}

			fmt.Printf("\nDevice Info:\n")
			fmt.Printf("  Selected:      %s\n", simulation.WeatherCondition(regs[0]))
			fmt.Printf("\nCurrent Values:\n")
			fmt.Printf("  Weather:       %s\n", reading.Condition)
			fmt.Printf("  Battery:       %d%%\n", reading.BatteryLevelPercent)
			fmt.Printf("  Solar Input:   %d Wh/day\n", reading.SolarInputWhPerDay)
			fmt.Printf("  Mode:          %s\n", reading.OperatingMode)
			return nil
		},
	}

	cmd.Flags().StringVar(&selectFlag, "select", "", "write a weather condition to the device before reading")
	return cmd
}
