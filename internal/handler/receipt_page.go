package handler

import "html/template"

// receiptView feeds receiptPageTemplate.
type receiptView struct {
	Title        string
	Mode         string // redirect, receipt, retry, message
	Message      string
	InvoiceNo    string
	CustomerName string
	VehiclePlate string
	AmountPaid   string
	BalanceDue   string
	PaidOn       string
	RedirectURL  string
	DelayMillis  int64
	RetryPath    string
}

var receiptPageTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;background:#f3f4f6;margin:0;display:flex;min-height:100vh;align-items:center;justify-content:center;color:#1f2937}
.card{background:#fff;border-radius:16px;box-shadow:0 10px 25px rgba(0,0,0,.08);padding:40px;max-width:420px;width:100%;text-align:center}
.muted{color:#6b7280;font-size:14px}
.row{display:flex;justify-content:space-between;padding:6px 0;font-size:14px}
.amount{font-size:28px;font-weight:700}
.badge{color:#15803d;background:#dcfce7;border-radius:999px;padding:2px 10px;font-size:11px;font-weight:700;text-transform:uppercase}
button,.button{display:block;width:100%;box-sizing:border-box;background:#2563eb;color:#fff;border:0;border-radius:12px;padding:12px;font-weight:700;font-size:15px;text-decoration:none;cursor:pointer;margin-top:16px}
</style>
</head>
<body>
<div class="card">
{{- if eq .Mode "redirect"}}
  <h2>Verifying payment status...</h2>
  <p class="muted">Please do not close this window.</p>
  <a class="button" href="{{.RedirectURL}}">Click here if not redirected</a>
  <script>setTimeout(function(){window.location.href={{.RedirectURL}};},{{.DelayMillis}});</script>
{{- else if eq .Mode "receipt"}}
  <h1>Official Receipt</h1>
  <p class="muted">Receipt Ref {{.InvoiceNo}}</p>
  <div class="row"><span class="muted">Billed To</span><strong>{{if .CustomerName}}{{.CustomerName}}{{else}}Customer{{end}}</strong></div>
  {{- if .VehiclePlate}}
  <div class="row"><span class="muted">Vehicle</span><span>{{.VehiclePlate}}</span></div>
  {{- end}}
  <div class="row"><span class="muted">Payment Date</span><span>{{.PaidOn}}</span></div>
  <div class="row"><span class="muted">Payment Status</span><span class="badge">Successful</span></div>
  <div class="row"><span>Amount Paid</span><span class="amount">RM {{.AmountPaid}}</span></div>
  {{- if ne .BalanceDue "0.00"}}
  <div class="row"><span class="muted">Balance Due</span><span>RM {{.BalanceDue}}</span></div>
  {{- end}}
  <p class="muted"><em>This is a system generated receipt and requires no signature.</em></p>
{{- else if eq .Mode "retry"}}
  <h2>Payment not confirmed yet</h2>
  <p class="muted">{{if .Message}}{{.Message}}{{else}}We could not confirm a payment for invoice {{.InvoiceNo}}. You can pay the outstanding balance now.{{end}}</p>
  <form method="post" action="{{.RetryPath}}">
    <input type="hidden" name="invoice" value="{{.InvoiceNo}}">
    <button type="submit">Pay Now</button>
  </form>
{{- else}}
  <h2>{{.Title}}</h2>
  <p class="muted">{{.Message}}</p>
{{- end}}
</div>
</body>
</html>
`))
