package email

// Email templates in HTML format

// BaseTemplate is the base layout for all emails
const BaseTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: #f4f6fb;
            color: #1a1a2e;
        }
        .container {
            max-width: 600px;
            margin: 0 auto;
            padding: 40px 20px;
        }
        .card {
            background: #ffffff;
            border-radius: 12px;
            padding: 32px;
            border: 1px solid #e3e8f0;
        }
        .logo {
            text-align: center;
            margin-bottom: 24px;
        }
        .logo h1 {
            font-size: 28px;
            color: #2b6cb0;
            margin: 0;
        }
        h2 {
            color: #1a1a2e;
            font-size: 24px;
            margin: 0 0 16px;
        }
        p {
            color: #4a5568;
            font-size: 16px;
            line-height: 1.6;
            margin: 0 0 16px;
        }
        .btn {
            display: inline-block;
            background: #2b6cb0;
            color: #ffffff !important;
            text-decoration: none;
            padding: 14px 28px;
            border-radius: 8px;
            font-weight: 600;
            font-size: 16px;
            margin: 16px 0;
        }
        .footer {
            text-align: center;
            margin-top: 32px;
            color: #8a94a6;
            font-size: 12px;
        }
        .highlight {
            color: #2b6cb0;
            font-weight: 600;
        }
        .info-box {
            background: #f0f4fa;
            border-radius: 8px;
            padding: 16px;
            margin: 16px 0;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo"><h1>SchoolHub</h1></div>
        <div class="card">{{.Content}}</div>
        <div class="footer">
            <p>You received this email because you are registered as staff on SchoolHub.</p>
        </div>
    </div>
</body>
</html>
`

// RoleChangedTemplate notifies staff that their administrative role changed
const RoleChangedTemplate = `
<h2>Your role has changed</h2>
<p>Hi {{.Name}},</p>
<p>Your administrative role at <span class="highlight">{{.SchoolName}}</span> has been updated.</p>
<div class="info-box">
    <p>Previous role: <strong>{{.OldRole}}</strong></p>
    <p>New role: <strong>{{.NewRole}}</strong></p>
</div>
<p>If you believe this change was made in error, please contact your school administrator.</p>
<a href="{{.DashboardURL}}" class="btn">Open dashboard</a>
`

// PrincipalPromotedTemplate notifies the newly promoted principal
const PrincipalPromotedTemplate = `
<h2>You are now the Principal</h2>
<p>Hi {{.Name}},</p>
<p>You have been made the Principal of <span class="highlight">{{.SchoolName}}</span>.</p>
<p>As Principal you have full access to every area of the school dashboard; no
additional permissions need to be granted to your account.</p>
<a href="{{.DashboardURL}}" class="btn">Open dashboard</a>
`

// WelcomeAdminTemplate greets a newly created administrator with their credentials
const WelcomeAdminTemplate = `
<h2>Welcome to SchoolHub</h2>
<p>Hi {{.Name}},</p>
<p>An administrator account has been created for you at
<span class="highlight">{{.SchoolName}}</span> with the role <strong>{{.Role}}</strong>.</p>
<div class="info-box">
    <p>Email: <strong>{{.Email}}</strong></p>
    {{if .TempPassword}}<p>Temporary password: <strong>{{.TempPassword}}</strong></p>{{end}}
</div>
<p>Please sign in and change your password as soon as possible.</p>
<a href="{{.LoginURL}}" class="btn">Sign in</a>
`
