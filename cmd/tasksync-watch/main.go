package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/deskhub/tasksync/internal/client"
	"github.com/deskhub/tasksync/internal/event"
	"github.com/deskhub/tasksync/internal/task"
	"github.com/deskhub/tasksync/internal/user"
	"github.com/deskhub/tasksync/pkg/storage"
)

var (
	app      = kingpin.New("tasksync-watch", "Terminal client for the tasksync server")
	endpoint = app.Flag("endpoint", "Server base URL").Default("http://localhost:3200").Envar("TASKSYNC_ENDPOINT").String()
	apiKey   = app.Flag("api-key", "API key").Envar("TASKSYNC_API_KEY").Required().String()
	userID   = app.Flag("user", "User ID of this session").Envar("TASKSYNC_USER").String()
	stateDir = app.Flag("state-dir", "Directory for persisted client state").Default(defaultStateDir()).String()

	watchCmd = app.Command("watch", "Follow the event stream and print changes as they happen")

	listCmd          = app.Command("list", "List tasks through the current filters")
	listSearch       = listCmd.Flag("search", "Substring to match in title or description").String()
	listStatus       = listCmd.Flag("status", "Filter by status").String()
	listPriority     = listCmd.Flag("priority", "Filter by priority").String()
	listNetwork      = listCmd.Flag("network", "Filter by network type").String()
	listAssignee     = listCmd.Flag("assignee", "Filter by assignee ID, or 'none' for unassigned").String()
	listArchived     = listCmd.Flag("archived", "Show archived tasks instead of active ones").Bool()
	listSortField    = listCmd.Flag("sort", "Sort field: number, title, status, priority, dueDate, createdAt").Default("number").String()
	listSortDir      = listCmd.Flag("dir", "Sort direction: asc or desc").Default("desc").String()
	listSaveFilters  = listCmd.Flag("save", "Persist these filters for the session user").Bool()
	listResetFilters = listCmd.Flag("reset", "Drop the persisted filters and use defaults").Bool()

	createCmd      = app.Command("create", "Create a task")
	createTitle    = createCmd.Arg("title", "Task title").Required().String()
	createDesc     = createCmd.Flag("description", "Task description").String()
	createPriority = createCmd.Flag("priority", "Task priority").Default(string(task.PriorityMedium)).String()
	createNetwork  = createCmd.Flag("network", "Network type").Default(string(task.NetworkInternet)).String()
	createAssignee = createCmd.Flag("assignee", "Assignee user ID").String()

	statusCmd   = app.Command("status", "Change the status of a task")
	statusID    = statusCmd.Arg("id", "Task ID").Required().String()
	statusValue = statusCmd.Arg("status", "New status").Required().String()

	priorityCmd   = app.Command("priority", "Change the priority of a task")
	priorityID    = priorityCmd.Arg("id", "Task ID").Required().String()
	priorityValue = priorityCmd.Arg("priority", "New priority").Required().String()

	networkCmd   = app.Command("network", "Change the network type of a task")
	networkID    = networkCmd.Arg("id", "Task ID").Required().String()
	networkValue = networkCmd.Arg("network", "New network type").Required().String()

	assignCmd  = app.Command("assign", "Assign a task to a user")
	assignID   = assignCmd.Arg("id", "Task ID").Required().String()
	assignUser = assignCmd.Arg("user", "User ID, or 'none' to unassign").Required().String()

	archiveCmd = app.Command("archive", "Archive a task")
	archiveID  = archiveCmd.Arg("id", "Task ID").Required().String()

	restoreCmd = app.Command("restore", "Restore an archived task")
	restoreID  = restoreCmd.Arg("id", "Task ID").Required().String()

	deleteCmd = app.Command("delete", "Delete a task")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()
)

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tasksync"
	}
	return filepath.Join(home, ".tasksync")
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	filterStorage, err := storage.NewLocalStorage(*stateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	session := client.NewSession(ctx, client.SessionConfig{
		BaseURL:       *endpoint,
		APIKey:        *apiKey,
		UserID:        *userID,
		FilterStorage: filterStorage,
		Notifier:      &terminalNotifier{},
		Logger:        logger,
	})

	switch command {
	case watchCmd.FullCommand():
		err = runWatch(ctx, logger, session)
	case listCmd.FullCommand():
		err = runList(ctx, session)
	case createCmd.FullCommand():
		err = runCreate(ctx, session)
	case statusCmd.FullCommand():
		err = runQuickUpdate(ctx, session, func(ctx context.Context) (*task.Task, error) {
			return session.Pipeline().SetStatus(ctx, *statusID, task.Status(*statusValue))
		})
	case priorityCmd.FullCommand():
		err = runQuickUpdate(ctx, session, func(ctx context.Context) (*task.Task, error) {
			return session.Pipeline().SetPriority(ctx, *priorityID, task.Priority(*priorityValue))
		})
	case networkCmd.FullCommand():
		err = runQuickUpdate(ctx, session, func(ctx context.Context) (*task.Task, error) {
			return session.Pipeline().SetNetworkType(ctx, *networkID, task.NetworkType(*networkValue))
		})
	case assignCmd.FullCommand():
		err = runAssign(ctx, session)
	case archiveCmd.FullCommand():
		err = runQuickUpdate(ctx, session, func(ctx context.Context) (*task.Task, error) {
			return session.Pipeline().Archive(ctx, *archiveID)
		})
	case restoreCmd.FullCommand():
		err = runQuickUpdate(ctx, session, func(ctx context.Context) (*task.Task, error) {
			return session.Pipeline().Restore(ctx, *restoreID)
		})
	case deleteCmd.FullCommand():
		if err = session.Refetch(ctx); err == nil {
			err = session.Pipeline().Delete(ctx, *deleteID)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWatch(ctx context.Context, logger *slog.Logger, session *client.Session) error {
	reconciler := client.NewReconciler(session.Collection(), &terminalNotifier{}, logger, *userID, session.Refetch)
	stream := client.NewStream(*endpoint+"/api/events", *apiKey, logger, func(ctx context.Context, data []byte) {
		printEventLine(data)
		reconciler.HandleRaw(ctx, data)
	})

	if err := session.Refetch(ctx); err != nil {
		return err
	}
	printTasks(session.Visible())
	color.New(color.Faint).Println("watching for changes, ^C to stop")
	return stream.Run(ctx)
}

func printEventLine(data []byte) {
	env, err := event.Decode(data)
	if err != nil {
		color.New(color.FgRed).Printf("!! undecodable event: %v\n", err)
		return
	}
	label := color.New(color.FgCyan).Sprintf("%-26s", env.Type)
	switch {
	case env.Task != nil:
		fmt.Printf("%s #%d %s\n", label, env.Task.TaskNumber, env.Task.Title)
	case env.NewTasksCount != nil:
		fmt.Printf("%s %d new task(s)\n", label, *env.NewTasksCount)
	case env.TaskID != "":
		fmt.Printf("%s %s\n", label, env.TaskID)
	default:
		fmt.Println(label)
	}
}

func runList(ctx context.Context, session *client.Session) error {
	if *listResetFilters {
		if err := session.ResetFilters(ctx); err != nil {
			return err
		}
	} else {
		f := session.Filters()
		f.Search = *listSearch
		f.Status = task.Status(*listStatus)
		f.Priority = task.Priority(*listPriority)
		f.NetworkType = task.NetworkType(*listNetwork)
		f.AssigneeID = *listAssignee
		f.ShowArchived = *listArchived
		f.SortField = client.SortField(*listSortField)
		f.SortDirection = client.SortDirection(*listSortDir)
		session.SetFilters(f)
		if *listSaveFilters {
			if err := session.FlushFilters(ctx); err != nil {
				return err
			}
		}
	}
	if err := session.Refetch(ctx); err != nil {
		return err
	}
	printTasks(session.Visible())
	return nil
}

func runCreate(ctx context.Context, session *client.Session) error {
	created, err := session.Pipeline().Create(ctx, &task.CreateRequest{
		Title:       *createTitle,
		Description: *createDesc,
		Priority:    task.Priority(*createPriority),
		NetworkType: task.NetworkType(*createNetwork),
		AssigneeID:  *createAssignee,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created #%d %s (%s)\n", created.TaskNumber, created.Title, created.ID)
	return nil
}

func runQuickUpdate(ctx context.Context, session *client.Session, apply func(ctx context.Context) (*task.Task, error)) error {
	if err := session.Refetch(ctx); err != nil {
		return err
	}
	updated, err := apply(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("updated #%d %s: %s / %s / %s\n",
		updated.TaskNumber, updated.Title, updated.Status, updated.Priority, updated.NetworkType)
	return nil
}

func runAssign(ctx context.Context, session *client.Session) error {
	if err := session.Refetch(ctx); err != nil {
		return err
	}
	if *assignUser == "none" {
		updated, err := session.Pipeline().Unassign(ctx, *assignID)
		if err != nil {
			return err
		}
		fmt.Printf("unassigned #%d %s\n", updated.TaskNumber, updated.Title)
		return nil
	}
	users, err := session.API().ListUsers(ctx)
	if err != nil {
		return err
	}
	var target *user.User
	for _, u := range users {
		if u.ID == *assignUser {
			target = u
			break
		}
	}
	if target == nil {
		return fmt.Errorf("unknown user %q", *assignUser)
	}
	updated, err := session.Pipeline().Assign(ctx, *assignID, target)
	if err != nil {
		return err
	}
	fmt.Printf("assigned #%d %s to %s\n", updated.TaskNumber, updated.Title, target.Name)
	return nil
}

func printTasks(tasks []*task.Task) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTITLE\tSTATUS\tPRIORITY\tNETWORK\tASSIGNEE\tDUE")
	for _, t := range tasks {
		assignee := "-"
		if t.Assignee != nil {
			assignee = t.Assignee.Name
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.TaskNumber, t.Title, statusColor(t.Status), t.Priority, t.NetworkType, assignee, due)
	}
	w.Flush()
}

func statusColor(s task.Status) string {
	switch s {
	case task.StatusNew:
		return color.New(color.FgBlue).Sprint(s)
	case task.StatusInProgress:
		return color.New(color.FgYellow).Sprint(s)
	case task.StatusReview:
		return color.New(color.FgMagenta).Sprint(s)
	case task.StatusCompleted:
		return color.New(color.FgGreen).Sprint(s)
	default:
		return string(s)
	}
}

// terminalNotifier prints synchronization signals to the terminal.
type terminalNotifier struct{}

func (terminalNotifier) TaskAssignedToYou(t *task.Task) {
	color.New(color.FgGreen, color.Bold).Printf(">> task assigned to you: #%d %s\n", t.TaskNumber, t.Title)
}

func (terminalNotifier) ActionFailed(action string, err error) {
	color.New(color.FgRed, color.Bold).Printf(">> %s failed, change rolled back: %v\n", action, err)
}
