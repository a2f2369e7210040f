package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// ServerInfo muestra el banner del servidor al iniciar
func ServerInfo(port, apiBaseURL, journal, cacheMode string, logger *zap.Logger) {
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	numCPU := runtime.NumCPU()
	startTime := time.Now().Format("2006-01-02 15:04:05")

	fmt.Println("")
	fmt.Println("📦 " + boldColor + "Romaneio Service" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Started at: " + startTime)
	fmt.Println("🌐 Server URL: " + cyanColor + "http://localhost:" + port + resetColor)
	fmt.Println("🔗 Backend API: " + cyanColor + apiBaseURL + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go Version: " + goVersion)
	fmt.Println("⚡ CPU Cores: " + fmt.Sprintf("%d", numCPU))
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Available Endpoints:" + resetColor)
	fmt.Println("   GET  " + greenColor + "/" + resetColor + "                                    - API Information")
	fmt.Println("   GET  " + greenColor + "/health" + resetColor + "                              - Health Check")
	fmt.Println("   POST " + greenColor + "/api/v1/stations/:station/auth/login" + resetColor + " - Login")
	fmt.Println("   POST " + greenColor + "/api/v1/stations/:station/cart/scan" + resetColor + "  - Leitura de código")
	fmt.Println("   POST " + greenColor + "/api/v1/stations/:station/cart/finalize" + resetColor + " - Finalizar romaneio")
	fmt.Println("   GET  " + greenColor + "/api/v1/stations/:station/ws" + resetColor + "         - Estação em tempo real")
	fmt.Println("")
	fmt.Println("🔍 " + boldColor + "Monitoring:" + resetColor)
	fmt.Println("   📈 Health Check: " + cyanColor + "http://localhost:" + port + "/health" + resetColor)
	fmt.Println("   📊 Metrics: " + cyanColor + "http://localhost:" + port + "/api/v1/monitoring/metrics" + resetColor)
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Environment:" + resetColor)
	fmt.Println("   🗄️  Journal: " + journal)
	fmt.Println("   🗃️  Cache: " + cacheMode)
	fmt.Println("   📝 Logging: Structured (Zap)")
	fmt.Println("")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("✨ " + boldColor + "Server is ready to handle requests!" + resetColor)
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", port),
		zap.String("api_base_url", apiBaseURL),
		zap.String("journal", journal),
		zap.String("cache", cacheMode),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.Int("cpu_cores", numCPU),
		zap.String("start_time", startTime),
	)
}
