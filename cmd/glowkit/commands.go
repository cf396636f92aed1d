package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/chat"
	"github.com/kalambet/glowkit/internal/config"
)

type productsResponse struct {
	Products []catalog.Product `json:"products"`
}

type selectionResponse struct {
	IDs []int `json:"ids"`
}

type toggleResponse struct {
	ID       int   `json:"id"`
	Selected bool  `json:"selected"`
	IDs      []int `json:"ids"`
}

type chatResponse struct {
	Outcome chat.Outcome  `json:"outcome"`
	Chat    chat.Snapshot `json:"chat"`
}

// --- products ---

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List catalog products",
	Long: `List catalog products, optionally filtered.

Examples:
  glowkit products --category skincare
  glowkit products --search serum`,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		products, err := listProducts(cmd.Context(), client, category, search)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			printWarning("No products match your filters.")
			return nil
		}
		printProducts(os.Stdout, products)
		return nil
	},
}

func init() {
	productsCmd.Flags().String("category", "", "exact category name")
	productsCmd.Flags().String("search", "", "keyword matched against name, brand and description")
}

func productsPath(category, search string) string {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("q", search)
	}
	if len(q) == 0 {
		return "/api/products"
	}
	return "/api/products?" + q.Encode()
}

func listProducts(ctx context.Context, client *apiClient, category, search string) ([]catalog.Product, error) {
	resp, err := client.get(ctx, productsPath(category, search))
	if err != nil {
		return nil, err
	}
	var out productsResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func printProducts(w io.Writer, products []catalog.Product) {
	for _, p := range products {
		fmt.Fprintf(w, "%s  %s %s\n",
			colorize(colorBold, fmt.Sprintf("%4d", p.ID)),
			p.Name,
			colorize(colorDim, "("+p.Brand+", "+p.Category+")"))
	}
}

// --- selection ---

var selectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "Show or change the selected products",
}

var selectionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the selected products",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/selection/products")
		if err != nil {
			return err
		}
		var out productsResponse
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}
		if len(out.Products) == 0 {
			printWarning("No products selected yet.")
			return nil
		}
		printProducts(os.Stdout, out.Products)
		return nil
	},
}

var selectionSetCmd = &cobra.Command{
	Use:   "set [ids...]",
	Short: "Replace the selection with the given product ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/api/selection", ids)
		if err != nil {
			return err
		}
		var out selectionResponse
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}

		printSuccess("Selection now holds %d product(s)", len(out.IDs))
		return nil
	},
}

var selectionToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Select a product, or deselect it if already selected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		out, err := toggleProduct(cmd.Context(), client, ids[0])
		if err != nil {
			return err
		}
		if out.Selected {
			printSuccess("Selected product %d", out.ID)
		} else {
			printSuccess("Deselected product %d", out.ID)
		}
		return nil
	},
}

var selectionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every product from the selection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := clearSelection(cmd.Context(), client); err != nil {
			return err
		}
		printSuccess("Selection cleared")
		return nil
	},
}

func init() {
	selectionCmd.AddCommand(selectionShowCmd)
	selectionCmd.AddCommand(selectionSetCmd)
	selectionCmd.AddCommand(selectionToggleCmd)
	selectionCmd.AddCommand(selectionClearCmd)
}

func clearSelection(ctx context.Context, client *apiClient) error {
	resp, err := client.delete(ctx, "/api/selection")
	if err != nil {
		return err
	}
	var out selectionResponse
	return decodeJSON(resp, &out)
}

func toggleProduct(ctx context.Context, client *apiClient, id int) (toggleResponse, error) {
	var out toggleResponse
	resp, err := client.post(ctx, fmt.Sprintf("/api/selection/%d/toggle", id), nil)
	if err != nil {
		return out, err
	}
	err = decodeJSON(resp, &out)
	return out, err
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid product id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Ask the beauty assistant a question",
	Long: `Ask the beauty assistant a question. The conversation continues
across invocations until the session expires on the server.

Examples:
  glowkit chat "Which serum suits dry skin?"
  glowkit chat --history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		history, _ := cmd.Flags().GetBool("history")
		message := strings.Join(args, " ")
		if !history && strings.TrimSpace(message) == "" {
			return fmt.Errorf("a message is required (or use --history)")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if history {
			resp, err := client.get(cmd.Context(), "/api/chat")
			if err != nil {
				return err
			}
			var snap chat.Snapshot
			if err := decodeJSON(resp, &snap); err != nil {
				return err
			}
			printWindow(os.Stdout, snap.Window)
			return nil
		}

		printStep("%s", chat.ThinkingText)
		out, err := sendChat(cmd.Context(), client, message)
		if err != nil {
			return err
		}
		printOutcome(os.Stdout, out)
		return nil
	},
}

func init() {
	chatCmd.Flags().Bool("history", false, "print the conversation so far instead of sending a message")
}

var routineCmd = &cobra.Command{
	Use:   "routine",
	Short: "Generate a personalized routine from the selected products",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("%s", chat.GeneratingText)
		resp, err := client.post(cmd.Context(), "/api/routine", nil)
		if err != nil {
			return err
		}
		var out chatResponse
		if err := decodeJSON(resp, &out); err != nil {
			return err
		}
		printOutcome(os.Stdout, out)
		return nil
	},
}

func sendChat(ctx context.Context, client *apiClient, message string) (chatResponse, error) {
	var out chatResponse
	resp, err := client.post(ctx, "/api/chat", map[string]string{"message": message})
	if err != nil {
		return out, err
	}
	err = decodeJSON(resp, &out)
	return out, err
}

// printOutcome prints the bot bubble produced by the last exchange.
func printOutcome(w io.Writer, out chatResponse) {
	if out.Outcome == chat.OutcomeIgnored {
		printWarning("Nothing to send")
		return
	}
	reply, ok := lastBotBubble(out.Chat.Window)
	if !ok {
		return
	}
	switch out.Outcome {
	case chat.OutcomeReplied:
		fmt.Fprint(w, renderMarkdown(reply.Text))
	case chat.OutcomeEmptySelection:
		printWarning("%s", reply.Text)
	default:
		printError("%s", reply.Text)
	}
}

func lastBotBubble(window []chat.Bubble) (chat.Bubble, bool) {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i].Sender == chat.SenderBot && !window[i].Pending {
			return window[i], true
		}
	}
	return chat.Bubble{}, false
}

func printWindow(w io.Writer, window []chat.Bubble) {
	for _, b := range window {
		if b.Pending {
			continue
		}
		if b.Sender == chat.SenderUser {
			fmt.Fprintf(w, "%s %s\n\n", colorize(colorCyan, "you:"), b.Text)
			continue
		}
		fmt.Fprint(w, renderMarkdown(b.Text))
	}
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorDim, "$"+k.EnvVar))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) != 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
