package server

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>NSE Position Tracker</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem; color: #1f2933; }
h1 { font-size: 1.4rem; }
form { display: flex; flex-wrap: wrap; gap: .5rem; margin-bottom: 1.5rem; }
input, select, button { padding: .4rem; font-size: .95rem; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5rem; }
th, td { border-bottom: 1px solid #e4e7eb; padding: .45rem .6rem; text-align: right; }
th:first-child, td:first-child, th:nth-child(2), td:nth-child(2) { text-align: left; }
.neg { color: #c62828; }
.pos { color: #2e7d32; }
.error { background: #fdecea; color: #c62828; padding: .6rem; margin-bottom: 1rem; }
.warn { color: #8a6d3b; }
.summary { display: flex; gap: 2rem; }
.summary div { font-size: 1.1rem; }
footer { margin-top: 2rem; font-size: .8rem; color: #7b8794; }
</style>
</head>
<body>
<h1>NSE Position Tracker</h1>

{{if .Error}}<div class="error">{{.Error}}</div>{{end}}

<form method="post" action="/positions">
  <input name="symbol" list="symbols" placeholder="Symbol" required autocomplete="off">
  <datalist id="symbols">{{range .Symbols}}<option value="{{.}}">{{end}}</datalist>
  <select name="side">
    <option value="LONG">LONG</option>
    <option value="SHORT">SHORT</option>
  </select>
  <input name="quantity" type="number" min="1" step="1" placeholder="Quantity" required>
  <input name="entry_price" type="number" min="0" step="0.01" placeholder="Entry price" required>
  <input name="stop_loss" type="number" min="0" step="0.01" placeholder="Stop loss" required>
  <input name="target_price" type="number" min="0" step="0.01" placeholder="Target price" required>
  <button type="submit">Add position</button>
</form>

{{if .HasPositions}}
<table>
  <thead>
    <tr>
      <th>Symbol</th><th>Side</th><th>Qty</th><th>Entry</th><th>Stop loss</th><th>Target</th>
      <th>Current</th><th>P/L</th><th>Max loss</th><th>Target profit</th>
    </tr>
  </thead>
  <tbody>
  {{range .Rows}}
    <tr>
      <td>{{.Symbol}}</td><td>{{.Side}}</td><td>{{.Quantity}}</td>
      <td>{{.Entry}}</td><td>{{.StopLoss}}</td><td>{{.Target}}</td>
      <td{{if not .PriceAvailable}} class="warn"{{end}}>{{.Current}}</td>
      <td class="{{if .Negative}}neg{{else}}pos{{end}}">{{.PL}}</td>
      <td>{{.MaxLoss}}</td><td>{{.TargetProfit}}</td>
    </tr>
  {{end}}
  </tbody>
</table>
{{if .Missing}}<p class="warn">Price unavailable for: {{range $i, $s := .Missing}}{{if $i}}, {{end}}{{$s}}{{end}}. Counted as 0 in totals.</p>{{end}}
{{else}}
<p>No positions added yet.</p>
{{end}}

<h2>Portfolio Summary</h2>
<div class="summary">
  <div>Total P/L: <strong class="{{if .PLNegative}}neg{{else}}pos{{end}}">{{.TotalPL}}</strong></div>
  <div>Total Risk (Max Loss): <strong>{{.TotalRisk}}</strong></div>
  <div>Total Target Profit: <strong>{{.TotalTarget}}</strong></div>
</div>

<footer>Updated {{.UpdatedAt}}{{if .Version}} · v{{.Version}}{{end}}</footer>
</body>
</html>
`
