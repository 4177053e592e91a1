package main

import (
	"context"
	"log"
	"os"

	"github.com/eshaffer321/dishdash-go/pkg/dishdash"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	// Settings come from DISHDASH_* variables and .env; the session from the
	// keyring populated by `dishdash login`.
	cfg, err := dishdash.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// stdout carries the MCP protocol, so logs go to stderr
	opts, err := dishdash.OptionsFromConfig(cfg, dishdash.NewLogger(os.Stderr, cfg.LogLevel))
	if err != nil {
		log.Fatalf("failed to open keyring: %v", err)
	}
	opts.Notifier = dishdash.NewTerminalNotifier(os.Stderr)

	client, err := dishdash.NewClient(opts)
	if err != nil {
		log.Fatalf("failed to initialize DishDash client: %v", err)
	}
	defer client.Close()

	if !client.Auth.IsAuthenticated() {
		log.Println("no stored session, order tools will fail until you run 'dishdash login'")
	}

	impl := &mcp.Implementation{
		Name:    "dishdash",
		Version: "1.0.0",
	}

	server := mcp.NewServer(impl, nil)

	registerTools(server, client)

	// Run server over stdio transport
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func registerTools(server *mcp.Server, client *dishdash.Client) {
	tools := &dishdashTools{client: client}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_meals",
		Description: "Search the DishDash meal catalogue by text, cuisine, cook, price and availability. Returns one page of meals with price, cook and rating.",
	}, tools.SearchMeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_meal",
		Description: "Get one meal by ID, including description, price, preparation time and cook.",
	}, tools.GetMeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_orders",
		Description: "List the signed-in user's orders, optionally filtered by status. Requires a stored session.",
	}, tools.ListOrders)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_order",
		Description: "Get one order by ID with its items, total, status and delivery details.",
	}, tools.GetOrder)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "track_order",
		Description: "Follow an order until it is delivered or cancelled, or until the timeout passes. Returns the latest state and the statuses seen along the way.",
	}, tools.TrackOrder)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "whoami",
		Description: "Show which DishDash account the server is signed in as, if any.",
	}, tools.Whoami)
}
