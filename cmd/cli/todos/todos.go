package todos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/crucial707/todo-api/cmd/cli/config"
	"github.com/crucial707/todo-api/cmd/cli/output"
	"github.com/spf13/cobra"
)

type todo struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// InitTodos registers the todos command group on the root command.
func InitTodos(rootCmd *cobra.Command) {
	todosCmd := &cobra.Command{
		Use:   "todos",
		Short: "Manage your todos",
	}

	todosCmd.AddCommand(
		listTodosCmd(),
		addTodoCmd(),
		getTodoCmd(),
		doneTodoCmd(),
		rmTodoCmd(),
	)

	rootCmd.AddCommand(todosCmd)
}

// ==========================
// LIST
// ==========================
func listTodosCmd() *cobra.Command {
	var asJSON bool
	var skip, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your todos",
		Run: func(cmd *cobra.Command, args []string) {
			path := fmt.Sprintf("/todos/?skip=%d&limit=%d", skip, limit)
			body, err := request("GET", path, nil)
			if err != nil {
				fmt.Println(err)
				return
			}

			var todos []todo
			if err := json.Unmarshal(body, &todos); err != nil {
				fmt.Println(err)
				return
			}

			if asJSON {
				b, _ := json.MarshalIndent(todos, "", "  ")
				fmt.Println(string(b))
				return
			}

			rows := make([][]interface{}, 0, len(todos))
			for _, t := range todos {
				status := " "
				if t.Completed {
					status = "x"
				}
				rows = append(rows, []interface{}{t.ID, status, t.Title, t.Description})
			}
			output.RenderTable([]string{"ID", "Done", "Title", "Description"}, rows)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output raw JSON")
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of todos to skip")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of todos to return")

	return cmd
}

// ==========================
// ADD
// ==========================
func addTodoCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, _ := json.Marshal(map[string]string{
				"title":       args[0],
				"description": description,
			})

			body, err := request("POST", "/todos/", payload)
			if err != nil {
				return err
			}

			var t todo
			if err := json.Unmarshal(body, &t); err != nil {
				return err
			}
			fmt.Printf("Added todo %d: %s\n", t.ID, t.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Optional description")

	return cmd
}

// ==========================
// GET
// ==========================
func getTodoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid todo id: %s", args[0])
			}

			body, err := request("GET", fmt.Sprintf("/todos/%d", id), nil)
			if err != nil {
				return err
			}

			var t todo
			if err := json.Unmarshal(body, &t); err != nil {
				return err
			}

			if asJSON {
				b, _ := json.MarshalIndent(t, "", "  ")
				fmt.Println(string(b))
				return nil
			}

			status := "pending"
			if t.Completed {
				status = "completed"
			}
			fmt.Printf("ID: %d\n", t.ID)
			fmt.Printf("Title: %s\n", t.Title)
			if t.Description != "" {
				fmt.Printf("Description: %s\n", t.Description)
			}
			fmt.Printf("Status: %s\n", status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output raw JSON")

	return cmd
}

// ==========================
// DONE
// ==========================
func doneTodoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a todo as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid todo id: %s", args[0])
			}

			payload := []byte(`{"completed": true}`)
			body, err := request("PATCH", fmt.Sprintf("/todos/%d", id), payload)
			if err != nil {
				return err
			}

			var t todo
			if err := json.Unmarshal(body, &t); err != nil {
				return err
			}
			fmt.Printf("Completed todo %d: %s\n", t.ID, t.Title)
			return nil
		},
	}
}

// ==========================
// REMOVE
// ==========================
func rmTodoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid todo id: %s", args[0])
			}

			if _, err := request("DELETE", fmt.Sprintf("/todos/%d", id), nil); err != nil {
				return err
			}
			fmt.Printf("Deleted todo %d\n", id)
			return nil
		},
	}
}

// request performs an authenticated API call and returns the response body.
func request(method, path string, payload []byte) ([]byte, error) {
	token, err := config.ReadToken()
	if err != nil {
		return nil, fmt.Errorf("please login first")
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, config.APIURL()+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
