package saf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScriptOptions parameterizes the generated DSpace import helpers.
type ScriptOptions struct {
	DSpaceBinPath string
	Eperson       string
	BaseURL       string
}

// ImportTarget pairs a career folder with its DSpace collection handle.
type ImportTarget struct {
	CareerFolder string
	Handle       string
}

// batLines joins script lines with CRLF so the scripts behave on Windows.
func batLines(lines []string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

func renderImportAll(opts ScriptOptions, targets []ImportTarget) string {
	lines := []string{
		"@echo off",
		"setlocal EnableExtensions EnableDelayedExpansion",
		"",
		fmt.Sprintf(`set "DSPACE_BIN=%s"`, opts.DSpaceBinPath),
		fmt.Sprintf(`set "EPERSON=%s"`, opts.Eperson),
		`set "BASE_DIR=%~dp0"`,
		`set "MAP_DIR=%BASE_DIR%mapfiles"`,
		`set "LOG_DIR=%BASE_DIR%logs"`,
		"",
		`if not exist "%MAP_DIR%" mkdir "%MAP_DIR%"`,
		`if not exist "%LOG_DIR%" mkdir "%LOG_DIR%"`,
		"",
		`set "MASTER_LOG=%LOG_DIR%\import_all.log"`,
		`echo [%date% %time%] START import_all>> "%MASTER_LOG%"`,
		"",
		`cd /d "%DSPACE_BIN%"`,
		"if errorlevel 1 (",
		`  echo ERROR: cannot enter "%DSPACE_BIN%">> "%MASTER_LOG%"`,
		"  exit /b 1",
		")",
		"",
	}
	for _, target := range targets {
		lines = append(lines,
			fmt.Sprintf(`set "CAREER=%s"`, target.CareerFolder),
			fmt.Sprintf(`set "HANDLE=%s"`, target.Handle),
			`set "SOURCE_DIR=%BASE_DIR%%CAREER%"`,
			`set "MAP_FILE=%MAP_DIR%\map_%CAREER%.map"`,
			`set "LOG_FILE=%LOG_DIR%\import_%CAREER%.log"`,
			"",
			`if not exist "%SOURCE_DIR%" (`,
			`  echo [ERROR] %CAREER% - missing "%SOURCE_DIR%">> "%MASTER_LOG%"`,
			"  goto end",
			")",
			"",
			// Resume mode when a mapfile from a previous run exists.
			`if exist "%MAP_FILE%" (`,
			`  set "MODE=-r"`,
			") else (",
			`  set "MODE=-a"`,
			")",
			"",
			`echo [%date% %time%] importing %CAREER% mode=%MODE% handle=%HANDLE%>> "%MASTER_LOG%"`,
			`call dspace import %MODE% -e "%EPERSON%" -c "%HANDLE%" -s "%SOURCE_DIR%" -m "%MAP_FILE%" >> "%LOG_FILE%" 2>&1`,
			"if errorlevel 1 (",
			`  echo [ERROR] %CAREER%>> "%MASTER_LOG%"`,
			"  goto end",
			") else (",
			`  echo [OK] %CAREER%>> "%MASTER_LOG%"`,
			")",
			"",
		)
	}
	lines = append(lines,
		":end",
		`echo [%date% %time%] END import_all>> "%MASTER_LOG%"`,
		"pause",
		"exit /b 0",
	)
	return batLines(lines)
}

func renderCareerImport(opts ScriptOptions, handle string) string {
	lines := []string{
		"@echo off",
		"setlocal EnableExtensions EnableDelayedExpansion",
		"",
		fmt.Sprintf(`set "DSPACE_BIN=%s"`, opts.DSpaceBinPath),
		fmt.Sprintf(`set "EPERSON=%s"`, opts.Eperson),
		`set "SOURCE_DIR=%~dp0"`,
		`set "MAP_DIR=%~dp0..\mapfiles"`,
		`set "LOG_DIR=%~dp0..\logs"`,
		fmt.Sprintf(`set "HANDLE=%s"`, handle),
		"",
		`if not exist "%MAP_DIR%" mkdir "%MAP_DIR%"`,
		`if not exist "%LOG_DIR%" mkdir "%LOG_DIR%"`,
		"",
		`for %%I in ("%~dp0.") do set "CAREER=%%~nxI"`,
		`set "MAP_FILE=%MAP_DIR%\map_%CAREER%.map"`,
		`set "LOG_FILE=%LOG_DIR%\import_%CAREER%.log"`,
		"",
		`if exist "%MAP_FILE%" (`,
		`  set "MODE=-r"`,
		") else (",
		`  set "MODE=-a"`,
		")",
		"",
		`cd /d "%DSPACE_BIN%"`,
		"if errorlevel 1 (",
		`  echo ERROR: cannot enter "%DSPACE_BIN%">> "%LOG_FILE%"`,
		"  exit /b 1",
		")",
		"",
		// Short flags only: many DSpace installs reject the long forms.
		`call dspace import %MODE% -e "%EPERSON%" -c "%HANDLE%" -s "%SOURCE_DIR%" -m "%MAP_FILE%" >> "%LOG_FILE%" 2>&1`,
		"if errorlevel 1 (",
		`  echo ERROR: import failed, see "%LOG_FILE%"`,
		"  exit /b 1",
		")",
		"",
		"echo OK: import finished.",
		"pause",
		"exit /b 0",
	}
	return batLines(lines)
}

func renderExportLinksCmd() string {
	lines := []string{
		"@echo off",
		"setlocal EnableExtensions EnableDelayedExpansion",
		`cd /d "%~dp0"`,
		"",
		`set "BASEURL=%~1"`,
		`if not "%BASEURL%"=="" (`,
		`  if "%BASEURL:~-1%"=="/" set "BASEURL=%BASEURL:~0,-1%"`,
		")",
		"",
		`if not exist "mapfiles" (`,
		"  echo ERROR: mapfiles folder missing",
		"  exit /b 2",
		")",
		"",
		`if not exist "logs" mkdir "logs" >nul 2>nul`,
		`set "TMP=logs\_links_tmp.txt"`,
		`set "TMPS=logs\_links_tmp_sorted.txt"`,
		`del "%TMP%" >nul 2>nul`,
		`del "%TMPS%" >nul 2>nul`,
		"",
		`for %%F in ("mapfiles\map_*.map") do (`,
		`  if exist "%%~fF" (`,
		`    for /f "usebackq tokens=1,2" %%A in ("%%~fF") do (`,
		`      set "ITEM=%%A"`,
		`      set "HANDLE=%%B"`,
		`      if not "!HANDLE!"=="" (`,
		`        for /f "tokens=2 delims=_" %%N in ("!ITEM!") do set "NRO=%%N"`,
		`        set "NRO=000!NRO!"`,
		`        set "NRO=!NRO:~-3!"`,
		`        echo !NRO!^|!HANDLE!>> "%TMP%"`,
		"      )",
		"    )",
		"  )",
		")",
		"",
		`if not exist "%TMP%" (`,
		`  echo ERROR: no entries found in mapfiles\map_*.map`,
		"  exit /b 3",
		")",
		"",
		`sort "%TMP%" /o "%TMPS%"`,
		"if errorlevel 1 exit /b 4",
		"",
		`set "OUT=dspace_links.json"`,
		`> "%OUT%" echo {`,
		`set "FIRST=1"`,
		`for /f "usebackq tokens=1,2 delims=|" %%N in ("%TMPS%") do (`,
		`  set "URL="`,
		`  if not "%BASEURL%"=="" set "URL=%BASEURL%/handle/%%O"`,
		`  if "!FIRST!"=="0" (`,
		`    >> "%OUT%" echo   , "%%N": {"handle":"%%O","url":"!URL!"}`,
		"  ) else (",
		`    >> "%OUT%" echo   "%%N": {"handle":"%%O","url":"!URL!"}`,
		`    set "FIRST=0"`,
		"  )",
		")",
		`>> "%OUT%" echo }`,
		"",
		"echo OK: wrote %OUT%",
		"exit /b 0",
	}
	return batLines(lines)
}

func renderExportLinksWrapper(baseURL string) string {
	lines := []string{
		"@echo off",
		"setlocal",
		`cd /d "%~dp0"`,
		fmt.Sprintf(`call "%%~dp0export_links_cmd.bat" "%s"`, baseURL),
		"echo.",
		`echo (On error, check logs\_links_tmp.txt)`,
		"pause",
		"exit /b %ERRORLEVEL%",
	}
	return batLines(lines)
}

// WriteImportScripts drops the batch-wide and per-career import helpers plus
// the link-export scripts into the output tree. Targets are sorted by career
// folder so regeneration is stable.
func WriteImportScripts(outputRoot string, targets []ImportTarget, opts ScriptOptions) error {
	if len(targets) == 0 {
		return nil
	}
	sorted := make([]ImportTarget, len(targets))
	copy(sorted, targets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CareerFolder < sorted[j].CareerFolder })

	allPath := filepath.Join(outputRoot, "import_all.bat")
	if err := os.WriteFile(allPath, []byte(renderImportAll(opts, sorted)), 0o644); err != nil {
		return fmt.Errorf("write import_all.bat: %w", err)
	}

	for _, target := range sorted {
		careerDir := filepath.Join(outputRoot, target.CareerFolder)
		if info, err := os.Stat(careerDir); err != nil || !info.IsDir() {
			continue
		}
		path := filepath.Join(careerDir, "import.bat")
		if err := os.WriteFile(path, []byte(renderCareerImport(opts, target.Handle)), 0o644); err != nil {
			return fmt.Errorf("write import.bat for %s: %w", target.CareerFolder, err)
		}
	}

	cmdPath := filepath.Join(outputRoot, "export_links_cmd.bat")
	if err := os.WriteFile(cmdPath, []byte(renderExportLinksCmd()), 0o644); err != nil {
		return fmt.Errorf("write export_links_cmd.bat: %w", err)
	}
	wrapperPath := filepath.Join(outputRoot, "export_links.bat")
	if err := os.WriteFile(wrapperPath, []byte(renderExportLinksWrapper(opts.BaseURL)), 0o644); err != nil {
		return fmt.Errorf("write export_links.bat: %w", err)
	}
	return nil
}
