package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JithendraNara/mission-control/internal/http"
	"github.com/JithendraNara/mission-control/internal/log"
	internal_storage "github.com/JithendraNara/mission-control/internal/storage"
	"github.com/JithendraNara/mission-control/pkg/models"
	"github.com/JithendraNara/mission-control/pkg/service"
)

func SetupCLI(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mission-control HTTP server",
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			port, err := cmd.Flags().GetString("port")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving port flag: %v", err)
				os.Exit(1)
			}
			if port == "" {
				port = os.Getenv("SERVER_PORT")
			}
			if port == "" {
				port = "8080"
			}
			store := initStore(dbConnStr)
			defer store.Close()
			if err := http.StartServer(port, store); err != nil {
				log.GetLogger().Errorf("Server failed: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("port", "", "Port to listen on (default SERVER_PORT or 8080)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			store := initStore(dbConnStr)
			defer store.Close()
			svc := service.NewTaskService(store, log.GetLogger())
			listTasks(svc)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with sample tasks",
		Run: func(cmd *cobra.Command, args []string) {
			dbConnStr, err := cmd.Flags().GetString("db")
			if err != nil {
				log.GetLogger().Errorf("Error retrieving db flag: %v", err)
				os.Exit(1)
			}
			store := initStore(dbConnStr)
			defer store.Close()
			svc := service.NewTaskService(store, log.GetLogger())
			seedTasks(svc)
		},
	}

	rootCmd.AddCommand(serveCmd, listCmd, seedCmd)
}

func listTasks(svc *service.TaskService) {
	tasks, total, err := svc.List(service.ListParams{})
	if err != nil {
		log.GetLogger().Errorf("Failed to list tasks: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to list tasks: %v\n", err)
		os.Exit(1)
	}
	if total == 0 {
		fmt.Fprintf(os.Stdout, "No tasks found.\n")
		return
	}
	fmt.Fprintf(os.Stdout, "Tasks (%d total):\n", total)
	for _, t := range tasks {
		fmt.Fprintf(os.Stdout, "- %s [%s/%s] %s (owner: %s, created: %s)\n",
			t.ID, t.Status, t.Priority, t.Title, t.Owner, t.CreatedAt.Format(time.RFC3339))
	}
}

// seedTasks inserts a small sample board through the service layer so the
// creation defaults and transition rules apply.
func seedTasks(svc *service.TaskService) {
	samples := []struct {
		task          models.Task
		status        models.TaskStatus
		blockerReason string
	}{
		{
			task: models.Task{
				Title:       "Design system foundation",
				Description: "Create color palette, typography, and spacing tokens",
				Owner:       models.RoleDesigner,
				Priority:    models.PriorityHigh,
			},
			status: models.StatusDoing,
		},
		{
			task: models.Task{
				Title:       "API authentication",
				Description: "Implement JWT auth for API endpoints",
				Owner:       models.RoleForge,
				Priority:    models.PriorityHigh,
			},
		},
		{
			task: models.Task{
				Title:       "React component library",
				Description: "Build reusable task card and list components",
				Owner:       models.RoleFrontend,
				Priority:    models.PriorityNormal,
			},
		},
		{
			task: models.Task{
				Title:       "E2E test suite",
				Description: "Set up Playwright for critical path testing",
				Owner:       models.RoleQA,
				Priority:    models.PriorityNormal,
			},
			status:        models.StatusBlocked,
			blockerReason: "Waiting for frontend implementation",
		},
		{
			task: models.Task{
				Title:       "Competitor analysis",
				Description: "Research Linear, GitHub Projects, Asana workflows",
				Owner:       models.RoleMinerva,
				Priority:    models.PriorityLow,
			},
			status: models.StatusDone,
		},
	}

	for _, s := range samples {
		created, err := svc.Create(s.task)
		if err != nil {
			log.GetLogger().Errorf("Failed to seed task '%s': %v", s.task.Title, err)
			fmt.Fprintf(os.Stderr, "Error: failed to seed task '%s': %v\n", s.task.Title, err)
			os.Exit(1)
		}
		if s.status != "" {
			if _, err := svc.UpdateStatus(created.ID, s.status, s.blockerReason); err != nil {
				log.GetLogger().Errorf("Failed to transition seeded task '%s': %v", s.task.Title, err)
				fmt.Fprintf(os.Stderr, "Error: failed to transition seeded task '%s': %v\n", s.task.Title, err)
				os.Exit(1)
			}
		}
	}
	fmt.Fprintf(os.Stdout, "Seeded %d tasks\n", len(samples))
}

func initStore(dbConnStr string) *internal_storage.PostgresStore {
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return store
}
