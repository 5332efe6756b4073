package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "business":
		handleBusiness(args)
	case "analysis":
		handleAnalysis(args)
	case "dashboard":
		handleDashboard(args)
	case "admin":
		handleAdmin(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: cashflowpro auth <register|login|logout|who>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleBusiness(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: cashflowpro business <list|create|delete>")
		return
	}

	switch args[0] {
	case "list":
		listBusinesses()
	case "create":
		createBusiness(args[1:])
	case "delete":
		deleteBusiness(args[1:])
	default:
		fmt.Printf("unknown business command: %s\n", args[0])
	}
}

func handleAnalysis(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: cashflowpro analysis <show|run|status>")
		return
	}

	switch args[0] {
	case "show":
		showAnalysis(args[1:])
	case "run":
		runAnalysis(args[1:])
	case "status":
		setAnalysisStatus(args[1:])
	default:
		fmt.Printf("unknown analysis command: %s\n", args[0])
	}
}

func handleDashboard(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/dashboard/summary", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var summary map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&summary)
	if resp.StatusCode != 200 {
		fmt.Printf("✗ Request failed: %v\n", summary)
		return
	}
	fmt.Printf("Active analyses:   %v\n", summary["activeAnalyses"])
	fmt.Printf("Reports generated: %v\n", summary["reportsGenerated"])
	fmt.Printf("Total revenue:     %v\n", summary["totalRevenue"])
}

func handleAdmin(args []string) {
	if len(args) < 1 || args[0] != "users" {
		fmt.Println("Usage: cashflowpro admin users")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/admin/users", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Println("✗ Admin access required")
		return
	}

	var users []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&users)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tROLE\tPLAN")
	for _, u := range users {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", u["id"], u["email"], u["role"], u["plan"])
	}
	w.Flush()
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	name := fs.String("name", "", "display name (optional)")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	if *name != "" {
		payload["name"] = *name
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ User registered: %s\n", *email)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	req, _ := http.NewRequest("GET", getAPIURL()+"/auth/me", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Println("Not logged in")
		return
	}

	var me map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&me)
	fmt.Printf("✓ Logged in as %v (%v, %v plan)\n", me["email"], me["role"], me["plan"])
}

// Business commands
func listBusinesses() {
	req, _ := http.NewRequest("GET", getAPIURL()+"/businesses", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var businesses []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&businesses)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINDUSTRY\tCOMPANY\tREVENUE\tSTATUS")
	for _, b := range businesses {
		status := ""
		if latest, ok := b["latestAnalysis"].(map[string]interface{}); ok {
			status = fmt.Sprintf("%v", latest["status"])
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			b["id"], b["industry"], b["companyName"], b["annualRevenue"], status)
	}
	w.Flush()
}

func createBusiness(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	industry := fs.String("industry", "", "industry (required)")
	company := fs.String("company", "", "company name")
	revenue := fs.String("revenue", "", "annual revenue, e.g. 1250000 or $1,250,000")
	location := fs.String("location", "", "location")
	employees := fs.Int("employees", -1, "employee count")

	fs.Parse(args)

	if *industry == "" {
		fmt.Println("Error: industry is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"industry":      *industry,
		"companyName":   *company,
		"annualRevenue": *revenue,
		"location":      *location,
	}
	if *employees >= 0 {
		payload["employees"] = *employees
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/businesses", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Business created: %v\n", result["id"])
	} else {
		fmt.Printf("✗ Create failed: %v\n", result)
	}
}

func deleteBusiness(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: cashflowpro business delete <business-id>")
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/businesses/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 204 {
		fmt.Println("✓ Business deleted")
	} else {
		fmt.Printf("✗ Delete failed (status %d)\n", resp.StatusCode)
	}
}

// Analysis commands
func showAnalysis(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: cashflowpro analysis show <analysis-id>")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/analyses/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var a map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&a)
	if resp.StatusCode != 200 {
		fmt.Printf("✗ Request failed: %v\n", a)
		return
	}

	fmt.Printf("Status:          %v\n", a["status"])
	fmt.Printf("Risk tolerance:  %v\n", a["riskTolerance"])
	fmt.Printf("Cash flow:       %v\n", a["discretionaryCashFlow"])
	fmt.Printf("Premium:         %v\n", a["recommendedPremium"])
	fmt.Printf("Score:           %v\n", a["affordabilityScore"])
	fmt.Printf("Recommendation:  %v\n", a["recommendation"])
}

func runAnalysis(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	id := fs.String("id", "", "analysis id (required)")
	risk := fs.String("risk", "", "risk tolerance: CONSERVATIVE, MODERATE or AGGRESSIVE")
	gross := fs.String("gross", "", "gross revenue")
	expenses := fs.String("expenses", "", "operating expenses")
	debt := fs.String("debt", "", "debt payments")
	comp := fs.String("comp", "", "owner compensation")
	tax := fs.String("tax", "", "tax obligations")

	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: -id is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"riskTolerance":     *risk,
		"grossRevenue":      *gross,
		"operatingExpenses": *expenses,
		"debtPayments":      *debt,
		"ownerCompensation": *comp,
		"taxObligations":    *tax,
	}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/analyses/"+*id+"/run", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var a map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&a)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Analysis complete: score %v\n", a["affordabilityScore"])
		fmt.Printf("  %v\n", a["recommendation"])
	} else {
		fmt.Printf("✗ Run failed: %v\n", a)
	}
}

func setAnalysisStatus(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: cashflowpro analysis status <analysis-id> <DRAFT|IN_PROGRESS|ANALYZED|REPORTED>")
		return
	}

	data, _ := json.Marshal(map[string]string{"status": args[1]})
	req, _ := http.NewRequest("PATCH", getAPIURL()+"/analyses/"+args[0]+"/status", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var a map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&a)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Status set to %v\n", a["status"])
	} else {
		fmt.Printf("✗ Status change failed: %v\n", a)
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("CASHFLOWPRO_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.cashflowpro/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.cashflowpro", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`CashflowPro CLI

Usage:
  cashflowpro <command> [options]

Commands:
  auth       User authentication (register, login, logout, who)
  business   Business records (list, create, delete)
  analysis   Affordability analyses (show, run, status)
  dashboard  Summary counters for the logged-in user
  admin      Admin operations (users) - admin access required
  help       Show this help message

Environment Variables:
  CASHFLOWPRO_API    API endpoint (default: http://localhost:8080/api)

Examples:
  cashflowpro auth register -email user@example.com -password secret123
  cashflowpro business create -industry retail -company "Blue Plate" -revenue 1250000
  cashflowpro analysis run -id <analysis-id> -gross 1000000 -expenses 400000
  cashflowpro dashboard
`)
}
